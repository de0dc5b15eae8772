package mcp

import "github.com/mark3labs/mcp-go/mcp"

// registerTools registers all MCP tools with the server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("get_health",
			mcp.WithDescription("Check the health of gryfd and the connectivity of every Gryf Smart bus"),
		),
		s.handleGetHealth,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_entities",
			mcp.WithDescription("List every entity (lights, outputs, shutters, thermostats, locks, inputs, sensors) with its current state"),
			mcp.WithString("component",
				mcp.Description("Only list entities of this component"),
				mcp.Enum("light", "switch", "cover", "climate", "lock", "binary_sensor", "sensor"),
			),
		),
		s.handleListEntities,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_entity",
			mcp.WithDescription("Get detailed information about one entity, including the JSON Schema its commands must satisfy"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Entity id, e.g. gryfsmart_dev_ttyusb0_light_11"),
			),
		),
		s.handleGetEntity,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_state",
			mcp.WithDescription("Get the last state the bus reported for an entity"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Entity id"),
			),
		),
		s.handleGetState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set_state",
			mcp.WithDescription("Send a command to an entity. The command is validated against the entity's state schema."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Entity id"),
			),
			mcp.WithObject("state",
				mcp.Required(),
				mcp.Description("Command properties (e.g. {\"state\": \"ON\", \"brightness\": 200} or {\"hvac_mode\": \"heat\", \"temperature\": 21.5})"),
			),
		),
		s.handleSetState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_on",
			mcp.WithDescription("Turn an entity on: lights and outputs switch on, shutters open, locks lock, thermostats heat"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Entity id"),
			),
			mcp.WithNumber("brightness",
				mcp.Description("Brightness 0-255 for dimmable (PWM) lights"),
			),
		),
		s.handleTurnOn,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("turn_off",
			mcp.WithDescription("Turn an entity off: lights and outputs switch off, shutters close, locks unlock, thermostats stop"),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Entity id"),
			),
		),
		s.handleTurnOff,
	)

	if s.services == nil {
		return
	}

	entry := mcp.WithString("entry_id",
		mcp.Description("Config entry id of the bus (default: the bus set up from YAML)"),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("reset",
			mcp.WithDescription("Reset every module on a bus"),
			entry,
		),
		s.handleReset,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("search_modules",
			mcp.WithDescription("Ask every configured module on a bus to identify itself; answers show up in get_health"),
			entry,
		),
		s.handleSearchModules,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("gryf_expert",
			mcp.WithDescription("Start or stop the TCP server that mirrors raw bus traffic for the Gryf Expert tool"),
			entry,
			mcp.WithString("action",
				mcp.Required(),
				mcp.Enum("turn_on", "turn_off"),
			),
		),
		s.handleGryfExpert,
	)
}
