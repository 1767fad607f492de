// cmd/server/main.go
package main

import (
	"fmt"

	"github.com/Annany2002/nebula-workspace/api"
	"github.com/Annany2002/nebula-workspace/config"
	"github.com/Annany2002/nebula-workspace/internal/logger"
	"github.com/Annany2002/nebula-workspace/internal/storage"
)

var (
	customLog = logger.NewLogger()
)

func main() {
	customLog.Println("Starting Nebula Workspace server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		customLog.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := storage.ConnectDB(cfg)
	if err != nil {
		customLog.Fatalf("Failed to initialize workspace database: %v", err)
	}
	defer func() {
		customLog.Println("Closing workspace database connection...")
		if err := db.Close(); err != nil {
			customLog.Printf("Error closing workspace database: %v", err)
		}
	}()

	router, err := api.SetupRouter(db, cfg)
	if err != nil {
		customLog.Fatalf("Failed to set up router: %v", err)
	}

	customLog.Printf("Server listening on port %s", cfg.ServerPort)
	if err := router.Run(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
		customLog.Fatalf("Failed to start server: %v", err)
	}
}
