// api/router.go
package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Annany2002/nebula-workspace/api/handlers"
	"github.com/Annany2002/nebula-workspace/api/middleware"
	"github.com/Annany2002/nebula-workspace/config"
	"github.com/Annany2002/nebula-workspace/internal/core"
	"github.com/Annany2002/nebula-workspace/internal/storage"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(db *sql.DB, cfg *config.Config) (*gin.Engine, error) {
	registry := core.NewRegistry()
	engine := core.NewEngine(registry,
		&storage.SchemaStore{DB: db},
		&storage.RecordStore{DB: db},
		&storage.OwnerAuthorizer{DB: db},
		core.WithPageLimits(cfg.DefaultPageLimit, cfg.MaxPageLimit),
	)
	definitions, err := core.NewPropertyDefinitions(registry)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())

	authHandler := handlers.NewAuthHandler(db, cfg)
	dbHandler := handlers.NewDatabaseHandler(db, engine, definitions)
	viewHandler := handlers.NewViewHandler(db, engine)
	recordHandler := handlers.NewRecordHandler(engine)

	// --- Public Routes ---
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	authRoutes := router.Group("/auth")
	if cfg.AuthRateLimit > 0 {
		authRoutes.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)))
	}
	{
		authRoutes.POST("/signup", authHandler.Signup)
		authRoutes.POST("/login", authHandler.Login)
	}

	// --- Protected Routes ---
	apiRoutes := router.Group("/api/v1")
	apiRoutes.Use(middleware.AuthMiddleware(cfg))
	{
		apiRoutes.GET("/me", authHandler.Me)

		apiRoutes.GET("/databases", dbHandler.ListDatabases)
		apiRoutes.POST("/databases", dbHandler.CreateDatabase)
		apiRoutes.GET("/databases/:database_id", dbHandler.GetDatabase)
		apiRoutes.PATCH("/databases/:database_id", dbHandler.RenameDatabase)
		apiRoutes.DELETE("/databases/:database_id", dbHandler.DeleteDatabase)

		apiRoutes.POST("/databases/:database_id/properties", dbHandler.AddProperty)
		apiRoutes.PUT("/databases/:database_id/properties/:property_id", dbHandler.UpdateProperty)
		apiRoutes.DELETE("/databases/:database_id/properties/:property_id", dbHandler.DeleteProperty)

		apiRoutes.GET("/databases/:database_id/views", viewHandler.ListViews)
		apiRoutes.POST("/databases/:database_id/views", viewHandler.CreateView)
		apiRoutes.PUT("/databases/:database_id/views/:view_id", viewHandler.UpdateView)
		apiRoutes.DELETE("/databases/:database_id/views/:view_id", viewHandler.DeleteView)
		apiRoutes.POST("/databases/:database_id/views/:view_id/default", viewHandler.SetDefaultView)

		apiRoutes.GET("/databases/:database_id/records", recordHandler.ListRecords)
		apiRoutes.POST("/databases/:database_id/records", recordHandler.CreateRecord)
		apiRoutes.POST("/databases/:database_id/records/query", recordHandler.QueryRecords)
		apiRoutes.POST("/databases/:database_id/records/validate", recordHandler.ValidateRecord)
		apiRoutes.GET("/databases/:database_id/records/:record_id", recordHandler.GetRecord)
		apiRoutes.PATCH("/databases/:database_id/records/:record_id", recordHandler.UpdateRecord)
		apiRoutes.DELETE("/databases/:database_id/records/:record_id", recordHandler.DeleteRecord)
	}

	return router, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	c.ExposeHeaders = []string{middleware.RequestIDHeader}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}
