// Package deps wires the long-lived collaborators every request shares.
package deps

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/topupbd/internal/app"
	"github.com/and161185/topupbd/internal/auth"
	"github.com/and161185/topupbd/internal/catalogue"
	"github.com/and161185/topupbd/internal/config"
	"github.com/and161185/topupbd/internal/identity"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/provider"
	"github.com/and161185/topupbd/internal/storage"
	"github.com/and161185/topupbd/internal/workflow"
	"go.uber.org/zap"
)

const deviceCookieTTLDays = 365

type Deps struct {
	Logger       *zap.SugaredLogger
	DeviceTokens *auth.TokenManager
	Provider     *provider.Client
	Registry     *app.Registry

	close func()
}

// NewDependencies picks the identity backend from the config: Supabase when
// a project URL is set, otherwise the local backend over Postgres, or over
// memory when no database is configured either.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Deps, error) {
	logger := cfg.Logger
	tm := auth.NewTokenManager(cfg.SecretKey)

	store, closeStore, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var backend identity.Backend
	if cfg.SupabaseURL != "" {
		logger.Infof("identity backend: supabase at %s", cfg.SupabaseURL)
		backend = identity.NewSupabaseBackend(cfg.SupabaseURL, cfg.SupabaseKey, cfg.ProviderLimit)
	} else {
		logger.Info("identity backend: local")
		backend = identity.NewLocalBackend(store, store, tm)
	}

	client := provider.NewClient(cfg.ProviderURL, cfg.ProviderKey, cfg.ProviderLimit, logger)

	registry := app.NewRegistry(app.Services{
		Provider: client,
		Backend:  backend,
		Guests:   identity.NewGuestProvider(store),
		Pricing: catalogue.Pricing{
			FXRate:    cfg.FXRate,
			Surcharge: cfg.RateSurcharge,
			OrderFee:  cfg.OrderFee,
		},
		Funds: workflow.FundsConfig{
			Minimum:   cfg.FundsMinimum,
			Surcharge: cfg.FundsSurcharge,
			Delay:     cfg.FundsDelay,
			Numbers: map[model.PaymentMethod]string{
				model.Nagad: cfg.NagadNumber,
				model.Bkash: cfg.BkashNumber,
			},
		},
		Logger: logger,
	})

	return &Deps{
		Logger:       logger,
		DeviceTokens: tm.WithTTL(deviceCookieTTLDays * 24 * time.Hour),
		Provider:     client,
		Registry:     registry,
		close:        closeStore,
	}, nil
}

func (d *Deps) Close() {
	if d.close != nil {
		d.close()
	}
	_ = d.Logger.Sync()
}

type store interface {
	identity.UserStore
	identity.ProfileStore
	identity.GuestStore
}

func openStorage(ctx context.Context, cfg *config.Config) (store, func(), error) {
	if cfg.DatabaseURI == "" {
		cfg.Logger.Warn("DATABASE_URI not set, keeping accounts in memory")
		return storage.NewMemoryStorage(), func() {}, nil
	}

	pg, err := storage.NewPostgresStorage(ctx, cfg.DatabaseURI)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	return pg, pg.Close, nil
}
