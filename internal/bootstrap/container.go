package bootstrap

import (
	"context"
	"log"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/config"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/eventbus"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/handler"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/localstore"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/notification"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/logger"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/pkg/mailer"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/realtime"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/service"
	"github.com/nitishgupta522/CampusConnect-sub000/internal/websocket"
	pktNats "github.com/nitishgupta522/CampusConnect-sub000/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Handlers
	NotificationHandler *handler.NotificationHandler
	DocumentHandler     *handler.DocumentHandler
	FeeHandler          *handler.FeeHandler

	// Background Services (Exposed for main.go to run)
	NotificationWorker service.INotificationWorker

	// Infrastructure exposed for seeding and tests
	WebSocketHub       *websocket.Hub
	DocumentStore      docstore.Store
	NotificationCenter *notification.Center
	EventPublisher     *service.EventPublisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Pipeline
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	bus := eventbus.NewBus(sysLogger)
	eventPublisher := service.NewEventPublisher(bus, pubSub, sysLogger)

	// 2.5 Infrastructure
	// NATS relays document changes between instances.
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	// Redis backs the shared local store and the websocket cluster relay.
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	redisAvailable := true
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		redisAvailable = false
	}

	// Local store: Redis when reachable, process-local memory otherwise.
	var local localstore.Store
	if redisAvailable {
		redisStore, err := localstore.NewRedisStore(cfg.App.RedisURL, sysLogger)
		if err != nil {
			log.Printf("[WARN] Redis local store unavailable, using memory: %v", err)
			local = localstore.NewMemoryStore(sysLogger)
		} else {
			local = redisStore
		}
	} else {
		local = localstore.NewMemoryStore(sysLogger)
	}

	// Document store with the NATS change relay attached. A nil db means the
	// remote side is down: realtime degrades to polling the local store and
	// the write surface answers 503 until a restart.
	var docStore docstore.Store
	if db != nil {
		gormStore := docstore.NewGormStore(db, natsPub, sysLogger)
		if err := gormStore.Migrate(); err != nil {
			log.Panicf("[FATAL] Document store migration failed: %v", err)
		}
		if natsSub != nil {
			if err := gormStore.AttachRelay(natsSub, "campus-connect-changes"); err != nil {
				log.Printf("[WARN] Change relay unavailable, changes stay instance-local: %v", err)
			}
		}
		docStore = gormStore
	} else {
		log.Printf("[WARN] Document store unavailable, realtime runs in fallback mode")
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	if !redisAvailable {
		wsHub = websocket.NewHub(nil, wsLogger)
	}
	go wsHub.Run()

	// 3. Notification Center
	center := notification.NewCenter(local, wsHub, wsLogger)
	center.Load(context.Background())
	center.StartSync()
	center.OnBadge(wsHub.UpdateBadge)

	// 3.5 Background worker turning domain events into notifications.
	worker := service.NewNotificationWorker(
		pubSub,
		service.TopicCampusEvents,
		center,
		docStore,
		wsHub,
		emailService,
		sysLogger,
	)

	feeService := service.NewFeePaymentService(cfg, docStore, eventPublisher, sysLogger)

	// Per-session realtime coordinators: live against the document store, or
	// polling the local store when the remote side is down.
	coordinatorOpts := []realtime.Option{
		realtime.WithAttachErrorFunc(func(collection string, err error) {
			sysLogger.Error("Bootstrap", "Realtime attach degraded", map[string]interface{}{
				"collection": collection,
				"error":      err.Error(),
			})
		}),
	}
	if docStore == nil {
		coordinatorOpts = append(coordinatorOpts, realtime.WithFallbackMode(cfg.App.FallbackPollInterval))
	}
	newCoordinator := func() *realtime.Coordinator {
		return realtime.NewCoordinator(docStore, local, sysLogger, coordinatorOpts...)
	}

	// 4. Handlers
	return &Container{
		NotificationHandler: handler.NewNotificationHandler(center, eventPublisher, wsHub, newCoordinator, wsLogger),
		DocumentHandler:     handler.NewDocumentHandler(docStore, eventPublisher, sysLogger),
		FeeHandler:          handler.NewFeeHandler(feeService, sysLogger),

		NotificationWorker: worker,
		WebSocketHub:       wsHub,
		DocumentStore:      docStore,
		NotificationCenter: center,
		EventPublisher:     eventPublisher,
	}
}
