package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed domain.json
var domainSchemaJSON []byte

// DomainConfig is the `gryfsmart:` YAML section.
type DomainConfig struct {
	Port         string                  `yaml:"port"`
	ModuleCount  int                     `yaml:"module_count"`
	PWM          List[StandardDevice]    `yaml:"pwm"`
	Light        List[StandardDevice]    `yaml:"light"`
	Input        List[StandardDevice]    `yaml:"input"`
	Lock         List[StandardDevice]    `yaml:"lock"`
	Temperature  List[StandardDevice]    `yaml:"temperature"`
	BinarySensor List[DeviceClassDevice] `yaml:"binary_sensor"`
	Output       List[DeviceClassDevice] `yaml:"output"`
	Climate      List[ClimateDevice]     `yaml:"climate"`
	Cover        List[CoverDevice]       `yaml:"cover"`
}

// StandardDevice is a device addressed by a single bus id.
type StandardDevice struct {
	Name string `yaml:"name"`
	ID   int    `yaml:"id"`
}

// DeviceClassDevice is a device with an optional hub device class.
type DeviceClassDevice struct {
	Name        string `yaml:"name"`
	ID          int    `yaml:"id"`
	DeviceClass string `yaml:"device_class"`
	Negation    bool   `yaml:"negation"`
}

// ClimateDevice pairs a heating output with a temperature sensor.
type ClimateDevice struct {
	Name       string `yaml:"name"`
	Out        int    `yaml:"out"`
	Temp       int    `yaml:"temp"`
	Hysteresis int    `yaml:"hysteresis"`
}

// CoverDevice is a shutter with its full travel time in seconds.
type CoverDevice struct {
	Name string `yaml:"name"`
	Out  int    `yaml:"out"`
	Time int    `yaml:"time"`
}

// List accepts either a YAML sequence or a single mapping.
type List[T any] []T

// UnmarshalYAML implements yaml.Unmarshaler for List
func (l *List[T]) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var items []T
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}

	var item T
	if err := value.Decode(&item); err != nil {
		return err
	}
	*l = List[T]{item}
	return nil
}

// Devices flattens the section into device records, in platform order.
func (d *DomainConfig) Devices() []DeviceConfig {
	var out []DeviceConfig

	standard := func(p Platform, list List[StandardDevice]) {
		for _, s := range list {
			out = append(out, DeviceConfig{Type: p, ID: s.ID, Name: s.Name})
		}
	}

	standard(PlatformLight, d.Light)
	standard(PlatformPWM, d.PWM)
	standard(PlatformInput, d.Input)
	standard(PlatformLock, d.Lock)
	standard(PlatformTemperature, d.Temperature)

	for _, s := range d.BinarySensor {
		dc := DeviceConfig{Type: PlatformBinarySensor, ID: s.ID, Name: s.Name, Negation: s.Negation}
		if s.DeviceClass != "" {
			dc.Extra = s.DeviceClass
		}
		out = append(out, dc)
	}
	for _, s := range d.Output {
		dc := DeviceConfig{Type: PlatformSwitch, ID: s.ID, Name: s.Name}
		if s.DeviceClass != "" {
			dc.Extra = s.DeviceClass
		}
		out = append(out, dc)
	}
	for _, c := range d.Climate {
		out = append(out, DeviceConfig{
			Type:       PlatformClimate,
			ID:         c.Out,
			Name:       c.Name,
			Extra:      c.Temp,
			Hysteresis: c.Hysteresis,
		})
	}
	for _, c := range d.Cover {
		out = append(out, DeviceConfig{Type: PlatformCover, ID: c.Out, Name: c.Name, Extra: c.Time})
	}

	return out
}

// DeviceConfig is one stored device record.
type DeviceConfig struct {
	Type       Platform `json:"type"`
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Extra      any      `json:"extra parameters,omitempty"`
	Negation   bool     `json:"negation,omitempty"`
	Hysteresis int      `json:"hysteresis_loop,omitempty"`
}

// Module returns the bus module number of the record's address.
func (d DeviceConfig) Module() int { return d.ID / 10 }

// Pin returns the submodule (pin) number of the record's address.
func (d DeviceConfig) Pin() int { return d.ID % 10 }

// ExtraString returns the extra parameter as a string, or "" when unset.
func (d DeviceConfig) ExtraString() string {
	switch v := d.Extra.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ExtraInt returns the extra parameter as an integer, or 0 when it is unset
// or not numeric.
func (d DeviceConfig) ExtraInt() int {
	switch v := d.Extra.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// SplitAddress splits a configured id into module and pin.
func SplitAddress(id int) (module, pin int) {
	return id / 10, id % 10
}

var (
	domainSchemaOnce sync.Once
	domainSchema     *jsonschema.Schema
	domainSchemaErr  error
)

// ValidateDomain validates a decoded `gryfsmart:` section against the
// embedded schema.
func ValidateDomain(section any) error {
	domainSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(domainSchemaJSON))
		if err != nil {
			domainSchemaErr = fmt.Errorf("failed to unmarshal schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource("domain.json", doc); err != nil {
			domainSchemaErr = fmt.Errorf("failed to add resource: %w", err)
			return
		}
		domainSchema, domainSchemaErr = c.Compile("domain.json")
	})
	if domainSchemaErr != nil {
		return domainSchemaErr
	}

	// Round-trip through JSON so numbers reach the validator as json.Number.
	b, err := json.Marshal(section)
	if err != nil {
		return fmt.Errorf("failed to encode section: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to decode section: %w", err)
	}

	return domainSchema.Validate(inst)
}
