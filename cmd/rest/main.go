package main

import (
	"context"
	"log"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/bootstrap"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/config"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/server"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/tracer"
	"github.com/nitishgupta522/CampusConnect-sub000/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database. A down database does not stop the server:
	// realtime views fall back to the local store until the next restart.
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Printf("[WARN] Unable to connect to GORM DB, serving in fallback mode: %v", err)
		gormDB = nil
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Notification Worker...")
		if err := container.NotificationWorker.Consume(context.Background()); err != nil {
			log.Printf("Background Worker Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
