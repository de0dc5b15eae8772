package configflow

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/urmzd/gryfd/pkg/config"
	"github.com/urmzd/gryfd/pkg/device/schema"
)

func stringField(name string, required bool, def string) Field {
	return Field{Name: name, Type: FieldString, Required: required, Default: def}
}

func intField(name string, required bool, def, minimum int) Field {
	return Field{Name: name, Type: FieldInteger, Required: required, Default: def, Minimum: &minimum}
}

func boolField(name string, def bool) Field {
	return Field{Name: name, Type: FieldBoolean, Required: true, Default: def}
}

func selectField(name string, def string, values []string) Field {
	f := Field{Name: name, Type: FieldSelect, Required: true}
	if def != "" {
		f.Default = def
	}
	for _, v := range values {
		f.Options = append(f.Options, Option{Value: v, Label: v})
	}
	return f
}

func communicationFields(c config.Communication) []Field {
	port := c.Port
	if port == "" {
		port = config.DefaultPort
	}
	count := c.ModuleCount
	if count == 0 {
		count = config.DefaultModuleCount
	}
	f := stringField(config.KeyPort, true, port)
	return []Field{f, intField(config.KeyModuleCount, true, count, 1)}
}

// platformFields returns the form of a device platform. edited pre-fills it
// when an existing record is being changed.
func platformFields(p config.Platform, lastID int, edited *config.DeviceConfig) []Field {
	name, id := "", lastID
	if edited != nil {
		name, id = edited.Name, edited.ID
	}

	switch p {
	case config.PlatformSwitch:
		class := config.DefaultSwitchClass
		if edited != nil {
			if s, ok := edited.Extra.(string); ok && s != "" {
				class = s
			}
		}
		return []Field{
			stringField(config.KeyName, false, name),
			intField(config.KeyID, false, id, 0),
			selectField(config.KeyDeviceClass, class, sortedKeys(config.SwitchDeviceClasses)),
		}

	case config.PlatformBinarySensor:
		class, negation := "door", false
		if edited != nil {
			if s, ok := edited.Extra.(string); ok && s != "" {
				class = s
			}
			negation = edited.Negation
		}
		return []Field{
			stringField(config.KeyName, false, name),
			intField(config.KeyID, false, id, 0),
			boolField(config.KeyNegation, negation),
			selectField(config.KeyDeviceClass, class, sortedKeys(config.BinarySensorDeviceClasses)),
		}

	case config.PlatformCover:
		travel := config.DefaultCoverTime
		if edited != nil {
			travel = intValue(edited.Extra)
		}
		return []Field{
			stringField(config.KeyName, false, name),
			intField(config.KeyID, false, id, 0),
			intField(config.KeyTime, true, travel, 0),
		}

	case config.PlatformClimate:
		tempID, hysteresis := 0, 0
		if edited != nil {
			tempID, hysteresis = intValue(edited.Extra), edited.Hysteresis
		}
		return []Field{
			stringField(config.KeyName, false, name),
			intField(config.KeyOutID, false, id, 0),
			intField(config.KeyTempID, false, tempID, 0),
			intField(config.KeyHysteresisLoop, false, hysteresis, 0),
		}
	}

	return []Field{
		stringField(config.KeyName, false, name),
		intField(config.KeyID, false, id, 0),
	}
}

// recordFrom builds a device record from a submitted platform form. It
// reports false when the name or address is blank.
func recordFrom(p config.Platform, input map[string]any) (config.DeviceConfig, bool) {
	rec := config.DeviceConfig{
		Type: p,
		Name: stringValue(input[config.KeyName]),
		ID:   intValue(input[config.KeyID]),
	}

	switch p {
	case config.PlatformSwitch:
		rec.Extra = stringValue(input[config.KeyDeviceClass])
	case config.PlatformBinarySensor:
		rec.Extra = stringValue(input[config.KeyDeviceClass])
		rec.Negation = boolValue(input[config.KeyNegation])
	case config.PlatformCover:
		rec.Extra = intValue(input[config.KeyTime])
	case config.PlatformClimate:
		rec.ID = intValue(input[config.KeyOutID])
		rec.Extra = intValue(input[config.KeyTempID])
		rec.Hysteresis = intValue(input[config.KeyHysteresisLoop])
	}

	return rec, rec.Name != "" && rec.ID != 0
}

// withDefaults copies input and fills every missing field with its default.
func withDefaults(fields []Field, input map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	maps.Copy(out, input)
	for _, f := range fields {
		if _, ok := out[f.Name]; !ok && f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// formSchema renders fields as the JSON Schema submitted input must satisfy.
func formSchema(fields []Field) json.RawMessage {
	props := make(map[string]any, len(fields))
	var required []string
	for _, f := range fields {
		prop := map[string]any{}
		switch f.Type {
		case FieldSelect:
			values := make([]string, 0, len(f.Options))
			for _, o := range f.Options {
				values = append(values, o.Value)
			}
			prop["type"] = "string"
			prop["enum"] = values
		default:
			prop["type"] = f.Type
		}
		if f.Minimum != nil {
			prop["minimum"] = *f.Minimum
		}
		if f.Required && f.Type == FieldString {
			prop["minLength"] = 1
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}

	doc := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return b
}

// fieldErrors maps a validation failure onto the offending fields. Failures
// not tied to a field are reported under "base".
func fieldErrors(err error) map[string]string {
	errs := make(map[string]string)
	for _, field := range schema.InvalidFields(err) {
		if field == "" {
			errs["base"] = "invalid_input"
			continue
		}
		errs[field] = "invalid"
	}
	if len(errs) == 0 {
		errs["base"] = "invalid_input"
	}
	return errs
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(math.Round(n))
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}
