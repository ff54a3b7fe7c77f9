package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spidlabs/spidpos/internal/config"
	"github.com/spidlabs/spidpos/internal/pos/agent"
	"github.com/spidlabs/spidpos/internal/pos/api"
	"github.com/spidlabs/spidpos/internal/pos/checkout"
	"github.com/spidlabs/spidpos/internal/pos/repository"
	"github.com/spidlabs/spidpos/internal/pos/store"
	possync "github.com/spidlabs/spidpos/internal/pos/sync"
	"github.com/spidlabs/spidpos/pkg/utils"
)

// session holds the terminal's mutable auth and tenant state
type session struct {
	mu         sync.Mutex
	token      string
	merchantID string
}

func (s *session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *session) MerchantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.merchantID
}

func (s *session) SetMerchantID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchantID = id
}

func main() {
	cfg := config.Load()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local store first: the terminal must come up with or without a
	// reachable backend.
	st, err := store.Open(&cfg.LocalStore)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer st.Close()

	if err := st.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize local store: %v", err)
	}

	if cfg.Terminal.MerchantID != "" && utils.ParseUUID(cfg.Terminal.MerchantID) == uuid.Nil {
		log.Printf("Ignoring invalid TERMINAL_MERCHANT_ID %q", cfg.Terminal.MerchantID)
		cfg.Terminal.MerchantID = ""
	}

	sess := &session{merchantID: cfg.Terminal.MerchantID}

	client := api.NewClient(cfg.Sync.APIBaseURL, cfg.Sync.RequestTimeout, sess)
	client.MerchantID = sess.MerchantID
	client.OnUnauthorized = func() {
		log.Printf("Session rejected by backend, clearing token")
		sess.SetToken("")
	}

	merchants := repository.NewMerchants(st)
	receipts := repository.NewReceipts(st)
	products := repository.NewProducts(st)

	prober := possync.NewProber(cfg.Sync.APIBaseURL+"/health", cfg.Sync.Interval)
	prober.Start(ctx)
	defer prober.Stop()

	if prober.Online() {
		login(ctx, cfg, client, sess, merchants)
	} else {
		log.Printf("Backend unreachable, starting offline")
	}

	// Fall back to the first cached merchant when none is configured.
	if sess.MerchantID() == "" {
		if cached, err := merchants.List(ctx); err == nil && len(cached) > 0 {
			sess.SetMerchantID(cached[0].ID)
			log.Printf("Selected merchant %s (%s)", cached[0].Name, cached[0].ID)
		}
	}

	if sess.Token() != "" && prober.Online() {
		refreshCatalog(ctx, client, products)
	}

	manager := possync.NewManager(st, receipts, client, prober, &cfg.Sync)
	manager.Start(ctx)
	defer manager.Stop()

	// Loopback API for the on-device UI: checkout, receipt history,
	// sync status and the manual retry path.
	co := checkout.New(receipts, client, prober, sess.MerchantID, cfg.Terminal.Currency)
	local := agent.New(co, products, receipts, manager, prober, sess.MerchantID)
	go func() {
		addr := "127.0.0.1:" + cfg.Terminal.LocalPort
		if err := local.Router().Run(addr); err != nil {
			log.Printf("Warning: local API stopped: %v", err)
		}
	}()

	log.Printf("Terminal agent running (local API on port %s, sync every %s)", cfg.Terminal.LocalPort, cfg.Sync.Interval)

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutting down")
			return
		case <-ticker.C:
			if merchantID := sess.MerchantID(); merchantID != "" {
				if pending, err := receipts.CountPendingSync(ctx, merchantID); err == nil && pending > 0 {
					log.Printf("%d receipt(s) awaiting sync", pending)
				}
			}
		}
	}
}

func login(ctx context.Context, cfg *config.Config, client *api.Client, sess *session, merchants *repository.Merchants) {
	payload, err := client.DevLogin(ctx, cfg.Terminal.Email, cfg.Terminal.Password)
	if err != nil {
		log.Printf("Warning: login failed, continuing offline: %v", err)
		return
	}
	sess.SetToken(payload.Token)
	log.Printf("Logged in as %s (%d merchant(s))", payload.User.Email, len(payload.Merchants))

	if err := merchants.UpsertFromServer(ctx, payload.Merchants); err != nil {
		log.Printf("Warning: caching merchants failed: %v", err)
	}
}

func refreshCatalog(ctx context.Context, client *api.Client, products *repository.Products) {
	payloads, err := client.Products(ctx, nil)
	if err != nil {
		log.Printf("Warning: catalog refresh failed: %v", err)
		return
	}
	if err := products.UpsertFromServer(ctx, payloads); err != nil {
		log.Printf("Warning: caching products failed: %v", err)
		return
	}
	log.Printf("Catalog refreshed (%d product(s))", len(payloads))
}
