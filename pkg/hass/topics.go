package hass

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Topics builds the topic layout of one bridge instance.
type Topics struct {
	// Prefix is the hub discovery prefix, usually "homeassistant".
	Prefix string
	// Base is the bridge's own topic root.
	Base string
}

// Config is the retained discovery topic of an entity.
func (t Topics) Config(component, uniqueID string) string {
	return fmt.Sprintf("%s/%s/%s/config", t.Prefix, component, uniqueID)
}

// State is the retained JSON state topic of an entity.
func (t Topics) State(uniqueID string) string {
	return fmt.Sprintf("%s/%s/state", t.Base, uniqueID)
}

// Command takes a JSON object or a bare state word.
func (t Topics) Command(uniqueID string) string {
	return fmt.Sprintf("%s/%s/set", t.Base, uniqueID)
}

// CommandField takes a single command field as plain text.
func (t Topics) CommandField(uniqueID, field string) string {
	return fmt.Sprintf("%s/%s/set/%s", t.Base, uniqueID, field)
}

// Commands matches every command topic of the bridge.
func (t Topics) Commands() string {
	return t.Base + "/+/set/#"
}

// Availability is the bridge status topic.
func (t Topics) Availability() string {
	return t.Base + "/status"
}

// numericFields are parsed as numbers when sent on their own topic.
var numericFields = map[string]bool{
	"brightness":  true,
	"temperature": true,
}

// ParseCommand decodes a message on a command topic into the entity id and
// a command map. Payloads on the bare set topic may be a JSON object or a
// state word; field topics carry one value. The tilt field maps onto the
// OPEN_TILT state.
func (t Topics) ParseCommand(topic string, payload []byte) (string, map[string]any, error) {
	rest, ok := strings.CutPrefix(topic, t.Base+"/")
	if !ok {
		return "", nil, fmt.Errorf("topic %q outside %q", topic, t.Base)
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] != "set" {
		return "", nil, fmt.Errorf("not a command topic: %q", topic)
	}
	uid := parts[0]
	text := strings.TrimSpace(string(payload))

	if len(parts) == 2 {
		if strings.HasPrefix(text, "{") {
			var cmd map[string]any
			if err := json.Unmarshal([]byte(text), &cmd); err != nil {
				return "", nil, fmt.Errorf("decode command: %w", err)
			}
			return uid, cmd, nil
		}
		if text == "" {
			return "", nil, fmt.Errorf("empty command for %s", uid)
		}
		return uid, map[string]any{"state": text}, nil
	}

	field := parts[2]
	switch {
	case field == "tilt":
		return uid, map[string]any{"state": "OPEN_TILT"}, nil
	case numericFields[field]:
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", field, err)
		}
		return uid, map[string]any{field: v}, nil
	default:
		return uid, map[string]any{field: text}, nil
	}
}
