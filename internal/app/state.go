// Package app holds the per-visitor storefront state: identity, catalogue,
// order and funds workflows, and the admin view toggle.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/topupbd/internal/catalogue"
	"github.com/and161185/topupbd/internal/identity"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/workflow"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provider is everything the storefront needs from the provider API.
type Provider interface {
	catalogue.Source
	workflow.Provider
	Balance(ctx context.Context) (decimal.Decimal, error)
}

// Services are shared by every visitor state.
type Services struct {
	Provider Provider
	Backend  identity.Backend
	Guests   identity.AnonymousIdentityProvider
	Pricing  catalogue.Pricing
	Funds    workflow.FundsConfig
	Logger   *zap.SugaredLogger
}

type State struct {
	DeviceID string
	Identity *identity.Bridge
	Order    *workflow.OrderWorkflow
	Book     *workflow.OrderBook
	Funds    *workflow.FundsWorkflow

	svc Services

	mu        sync.Mutex
	catalogue *catalogue.Catalogue
	view      model.View
	lastSeen  time.Time
}

func newState(ctx context.Context, deviceID string, svc Services) *State {
	logger := svc.Logger.With("device", deviceID)

	cat := catalogue.Load(ctx, svc.Provider, svc.Pricing, logger)
	book := workflow.NewOrderBook(svc.Provider, logger)

	s := &State{
		DeviceID:  deviceID,
		Identity:  identity.NewBridge(identity.NewClient(svc.Backend), svc.Guests, deviceID, logger),
		Book:      book,
		Order:     workflow.NewOrderWorkflow(cat, svc.Pricing, svc.Provider, book, logger),
		Funds:     workflow.NewFundsWorkflow(svc.Funds, logger),
		svc:       svc,
		catalogue: cat,
		view:      model.UserView,
		lastSeen:  time.Now(),
	}

	s.Identity.Init(ctx)
	return s
}

func (s *State) Catalogue() *catalogue.Catalogue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogue
}

// ReloadCatalogue fetches the listing again and hands it to the order
// workflow, which keeps the selection when it still exists.
func (s *State) ReloadCatalogue(ctx context.Context) *catalogue.Catalogue {
	cat := catalogue.Load(ctx, s.svc.Provider, s.svc.Pricing, s.svc.Logger.With("device", s.DeviceID))

	s.mu.Lock()
	s.catalogue = cat
	s.mu.Unlock()

	s.Order.SetCatalogue(cat)
	return cat
}

func (s *State) View() model.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// ToggleView flips between the storefront and the admin dashboard.
func (s *State) ToggleView() model.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.view == model.AdminView {
		s.view = model.UserView
	} else {
		s.view = model.AdminView
	}
	return s.view
}

// PanelBalance is the provider account balance converted to local currency.
func (s *State) PanelBalance(ctx context.Context) (decimal.Decimal, error) {
	usd, err := s.svc.Provider.Balance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return s.svc.Pricing.Local(usd), nil
}

func (s *State) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *State) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *State) close() {
	s.Identity.Close()
}
