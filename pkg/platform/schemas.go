package platform

// Command schemas, one per adapter kind. They double as the state_schema
// exposed over the API and MCP.
var (
	onOffSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"state": {"type": "string", "enum": ["ON", "OFF", "on", "off"]}
		},
		"additionalProperties": false
	}`)

	brightnessSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"state": {"type": "string", "enum": ["ON", "OFF", "on", "off"]},
			"brightness": {"type": "number", "minimum": 0, "maximum": 255}
		},
		"additionalProperties": false
	}`)

	switchSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"state": {"type": "string", "enum": ["ON", "OFF", "TOGGLE", "on", "off", "toggle"]}
		},
		"additionalProperties": false
	}`)

	coverSchema = mustSchema(`{
		"type": "object",
		"required": ["state"],
		"properties": {
			"state": {"type": "string", "enum": ["OPEN", "CLOSE", "STOP", "OPEN_TILT", "open", "close", "stop", "open_tilt"]}
		},
		"additionalProperties": false
	}`)

	lockSchema = mustSchema(`{
		"type": "object",
		"required": ["state"],
		"properties": {
			"state": {"type": "string", "enum": ["LOCK", "UNLOCK", "lock", "unlock"]}
		},
		"additionalProperties": false
	}`)

	climateSchema = mustSchema(`{
		"type": "object",
		"properties": {
			"state": {"type": "string", "enum": ["ON", "OFF", "on", "off"]},
			"hvac_mode": {"type": "string", "enum": ["heat", "off"]},
			"preset_mode": {"type": "string", "enum": ["away", "eco", "sleep"]},
			"temperature": {"type": "number", "minimum": -10, "maximum": 50}
		},
		"additionalProperties": false
	}`)
)
