// Package telemetry records entity state changes as InfluxDB points.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device"
)

const (
	defaultConnectTimeout = 10 * time.Second
	measurement           = "entity_state"
)

// Client writes state changes through the batching write API. It
// implements device.Sink; writes never block the caller.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	mu       sync.RWMutex
	entities map[string]device.Entity
}

// Connect creates the client and checks the server is healthy.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batch := max(cfg.BatchSize, 1)
	flush := max(cfg.FlushInterval, 1)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batch)).
			SetFlushInterval(uint(flush)*1000))

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		entities: make(map[string]device.Entity),
	}
	go func() {
		for err := range c.writeAPI.Errors() {
			log.Warn().Err(err).Msg("InfluxDB write failed")
		}
	}()

	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("Connected to InfluxDB")
	return c, nil
}

func (c *Client) EntityAdded(e device.Entity, s device.State) {
	c.mu.Lock()
	c.entities[e.ID] = e
	c.mu.Unlock()
	c.StateChanged(e.ID, s)
}

func (c *Client) EntityRemoved(id string) {
	c.mu.Lock()
	delete(c.entities, id)
	c.mu.Unlock()
}

func (c *Client) StateChanged(id string, s device.State) {
	c.mu.RLock()
	e, ok := c.entities[id]
	c.mu.RUnlock()
	if !ok {
		e = device.Entity{ID: id}
	}

	if p := statePoint(e, s, time.Now()); p != nil {
		c.writeAPI.WritePoint(p)
	}
}

// Close flushes pending points and closes the client.
func (c *Client) Close() {
	if c.client == nil {
		return
	}
	c.writeAPI.Flush()
	c.client.Close()
}

// statePoint converts a state into a point tagged with the entity's id,
// component and kind. Icons and empty values are dropped; on/off states
// also get a numeric "on" field for graphing. Returns nil when nothing
// is left to record.
func statePoint(e device.Entity, s device.State, ts time.Time) *write.Point {
	fields := make(map[string]any, len(s))
	for k, v := range s {
		if k == "icon" {
			continue
		}
		switch val := v.(type) {
		case nil:
		case int:
			fields[k] = float64(val)
		case float64, bool:
			fields[k] = val
		case string:
			if val == "" {
				continue
			}
			fields[k] = val
			if k == "state" && (val == device.StateOn || val == device.StateOff) {
				fields["on"] = val == device.StateOn
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}

	tags := map[string]string{"entity_id": e.ID}
	if e.Component != "" {
		tags["component"] = e.Component
	}
	if e.Kind != "" {
		tags["kind"] = e.Kind
	}
	return write.NewPoint(measurement, tags, fields, ts)
}
