package main

import (
	"context"
	"log"

	"github.com/legex/CAI-Webex/internal/bootstrap"
	"github.com/legex/CAI-Webex/internal/config"
	"github.com/legex/CAI-Webex/internal/server"
	"github.com/legex/CAI-Webex/internal/tracer"
	"github.com/legex/CAI-Webex/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.App.OtelServiceName, cfg.App.OtelEndpoint)
	defer shutdownTracer(context.Background())

	// 3. Initialize Database
	gormDB, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Start Background Services
	go func() {
		log.Println("Background: Starting Telemetry Service...")
		if err := container.TelemetryService.Consume(context.Background()); err != nil {
			log.Printf("Background Telemetry Error: %v", err)
		}
	}()

	// 6. Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
