package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/urmzd/gryfd/pkg/api/handlers"
	"github.com/urmzd/gryfd/pkg/configflow"
	"github.com/urmzd/gryfd/pkg/db"
	"github.com/urmzd/gryfd/pkg/device"
	"github.com/urmzd/gryfd/pkg/device/schema"
	"github.com/urmzd/gryfd/pkg/integration"
)

// Deps are the collaborators the routes work against. Entries, Manager and
// Flows may be nil, which leaves their routes out. Without a Controller the
// entity routes answer as if no bus were configured.
type Deps struct {
	Controller device.Controller
	Subscriber device.EventSubscriber
	Validator  *schema.Validator
	Manager    *integration.Manager
	Entries    db.EntryStore
	Flows      *configflow.Manager

	// CORSOrigins lists the allowed browser origins, any when empty.
	CORSOrigins []string
}

// Router holds the Gin engine and dependencies
type Router struct {
	engine *gin.Engine
	deps   Deps
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	gin.SetMode(gin.ReleaseMode)

	if deps.Validator == nil {
		deps.Validator = schema.NewValidator()
	}
	if deps.Controller == nil {
		deps.Controller = device.NewNullController()
	}
	if deps.Subscriber == nil {
		deps.Subscriber = device.NewNullEventSubscriber()
	}

	engine := gin.New()
	SetupMiddleware(engine, deps.CORSOrigins...)

	router := &Router{
		engine: engine,
		deps:   deps,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	var status handlers.StatusProvider
	if r.deps.Manager != nil {
		status = r.deps.Manager
	}
	healthHandler := handlers.NewHealthHandler(r.deps.Controller, status)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		entitiesHandler := handlers.NewEntitiesHandler(r.deps.Controller)
		controlHandler := handlers.NewControlHandler(r.deps.Controller, r.deps.Validator)
		entities := v1.Group("/entities")
		{
			entities.GET("", entitiesHandler.ListEntities)
			entities.GET("/:id", entitiesHandler.GetEntity)
			entities.GET("/:id/state", controlHandler.GetState)
			entities.POST("/:id/state", controlHandler.SetState)
		}

		eventsHandler := handlers.NewEventsHandler(r.deps.Subscriber)
		v1.GET("/events", eventsHandler.Events)

		if r.deps.Manager != nil {
			servicesHandler := handlers.NewServicesHandler(r.deps.Manager)
			services := v1.Group("/services")
			{
				services.POST("/reset", servicesHandler.Reset)
				services.POST("/search_modules", servicesHandler.SearchModules)
				services.POST("/gryf_expert", servicesHandler.GryfExpert)
			}
		}

		if r.deps.Entries != nil && r.deps.Manager != nil && r.deps.Flows != nil {
			entriesHandler := handlers.NewEntriesHandler(r.deps.Entries, r.deps.Manager, r.deps.Flows)
			entries := v1.Group("/entries")
			{
				entries.GET("", entriesHandler.ListEntries)
				entries.GET("/:id", entriesHandler.GetEntry)
				entries.DELETE("/:id", entriesHandler.DeleteEntry)
				entries.POST("/:id/options", entriesHandler.StartOptions)
			}
		}

		if r.deps.Flows != nil {
			flowsHandler := handlers.NewFlowsHandler(r.deps.Flows)
			flows := v1.Group("/flows")
			{
				flows.POST("", flowsHandler.StartFlow)
				flows.GET("", flowsHandler.ListFlows)
				flows.GET("/:id", flowsHandler.GetFlow)
				flows.POST("/:id", flowsHandler.ConfigureFlow)
				flows.DELETE("/:id", flowsHandler.AbortFlow)
			}
		}
	}
}

// Handler returns the HTTP handler serving every route
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
