package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/ticket-services/configs"
	"github.com/avvvet/ticket-services/internal/backend"
	"github.com/avvvet/ticket-services/internal/db"
	natsconn "github.com/avvvet/ticket-services/internal/nats"
	"github.com/avvvet/ticket-services/internal/ticketsvc/broker"
	"github.com/avvvet/ticket-services/internal/ticketsvc/handlers"
	"github.com/avvvet/ticket-services/internal/ticketsvc/service"
	"github.com/avvvet/ticket-services/internal/ticketsvc/store"
	"github.com/avvvet/ticket-services/internal/ticketsvc/ws"
)

const SERVICE_NAME = "ticket"

func init() {
	config.Logging(SERVICE_NAME + "_service")
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	instanceId := config.CreateUniqueInstance(SERVICE_NAME)

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	dashboardService := service.NewDashboardService(client)

	deps := ws.Deps{
		Backend:    client,
		Dashboard:  dashboardService,
		ArchiveTTL: cfg.ArchiveTTL,
	}
	handlerDeps := handlers.Deps{
		Dashboard: dashboardService,
		LiffID:    cfg.LiffID,
		JWTSecret: cfg.JWTSecret,
		Port:      cfg.Port,
	}

	// pg connection, submission ledger
	if cfg.PostgresURL != "" {
		dbpool, err := db.Connect(cfg.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to DB: %v", err)
		}
		defer db.ClosePool()
		log.Printf("pg connection established successfully")

		submissionStore := store.NewSubmissionStore(dbpool)
		if err := submissionStore.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("%v", err)
		}
		deps.Ledger = submissionStore
		handlerDeps.Submissions = submissionStore
	}

	// mongo connection, scan archive
	if cfg.MongoURI != "" {
		mdb, err := db.ConnectMongo(cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer db.DisconnectMongo(mdb)
		log.Printf("mongo connection established successfully")

		scanStore := store.NewScanStore(mdb)
		if err := scanStore.EnsureIndexes(context.Background()); err != nil {
			log.Fatalf("%v", err)
		}
		deps.Archive = scanStore
		handlerDeps.Scans = scanStore
	}

	s := ws.NewWs(deps)
	handlerDeps.Ws = s

	// page messages go through NATS when configured so any instance can
	// reach a socket
	var sub *nats.Subscription
	if cfg.NatsURL != "" {
		n, err := natsconn.Connect(SERVICE_NAME+"_"+instanceId, cfg.NatsURL, cfg.NatsToken)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Close()
		log.Printf("NATS connection established successfully %s", n.Url)

		b := broker.NewBroker(n.Conn, s.Deliver)
		s.Outbox = b
		if sub, err = b.Subscribe(); err != nil {
			log.Fatalf("Error: unable to subscribe to page messages %v", err)
		}
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.AllowedOrigins)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	h := handlers.NewHandler(handlerDeps)
	h.SetRoutes(r)

	// no write timeout, websocket connections are long lived
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 60 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if sub != nil {
		sub.Unsubscribe()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.Shutdown(ctx)
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
