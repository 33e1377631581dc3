package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/tienda-labs/storefront/internal/bank"
	"github.com/tienda-labs/storefront/internal/catalog"
	"github.com/tienda-labs/storefront/internal/checkout"
	"github.com/tienda-labs/storefront/internal/config"
	"github.com/tienda-labs/storefront/internal/httpx"
	kafkax "github.com/tienda-labs/storefront/internal/kafka"
	"github.com/tienda-labs/storefront/internal/postgres"
	"github.com/tienda-labs/storefront/internal/redisx"
	"github.com/tienda-labs/storefront/internal/session"
	"github.com/tienda-labs/storefront/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := postgres.InitSchema(ctx, db, cfg.SchemaFile); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producers: confirmed & rejected checkouts on separate topics
	pOK := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicCheckoutConfirmed, 1024)
	pOK.Start(ctx)
	pRJ := kafkax.NewProducer(cfg.KafkaBrokers, checkout.TopicCheckoutRejected, 1024)
	pRJ.Start(ctx)

	// Repos
	catalogRepo := &catalog.Repo{DB: db}
	userRepo := &users.Repo{DB: db}
	ledger := &bank.Ledger{DB: db}

	sessions := session.NewStore(session.RedisKV{C: rdb})

	orch := &checkout.Orchestrator{
		Catalog: catalogRepo,
		Methods: userRepo,
		Settler: &checkout.Settlement{DB: db},
	}

	// Router & handlers. Everything except /healthz runs under the
	// session middleware.
	router := httpx.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(httpx.WithSession(sessions))

		(&httpx.CatalogHandler{Catalog: catalogRepo}).Register(r)
		(&httpx.CartHandler{Catalog: catalogRepo}).Register(r)
		(&httpx.AuthHandler{Users: userRepo}).Register(r)
		(&httpx.ProfileHandler{Users: userRepo, Bank: ledger}).Register(r)
		(&httpx.CheckoutHandler{
			Users:          userRepo,
			Orchestrator:   orch,
			ProducerOK:     pOK,
			ProducerReject: pRJ,
			Service:        cfg.ServiceName,
		}).Register(r)
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pOK.Close() // close inbox -> flush & close writer
	pRJ.Close()
	cancel()
	pOK.WaitClosed()
	pRJ.WaitClosed()
}
