package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/and161185/topupbd/internal/app"
	"github.com/and161185/topupbd/internal/config"
	"github.com/and161185/topupbd/internal/deps"
	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/middleware"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/monitoring"
	"github.com/and161185/topupbd/internal/proxy"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/chi/v5"
)

const (
	proxyBurst     = 5
	maxRequestBody = 1 << 20
)

type Server struct {
	deps    *deps.Deps
	config  *config.Config
	limiter *middleware.RateLimiter
}

func NewServer(d *deps.Deps, cfg *config.Config) *Server {
	srv := &Server{deps: d, config: cfg}
	if cfg.ProxyRateRPS > 0 {
		srv.limiter = middleware.NewRateLimiter(cfg.ProxyRateRPS, proxyBurst, d.Logger)
	}
	return srv
}

func (srv *Server) buildRouter() http.Handler {
	logger := srv.deps.Logger

	router := chi.NewRouter()
	router.Use(chiMiddleware.StripSlashes)
	router.Use(middleware.LogMiddleware(logger))
	router.Use(middleware.DecompressMiddleware)
	router.Use(chiMiddleware.RequestSize(maxRequestBody))
	router.Use(middleware.CompressMiddleware(logger))

	router.Method(http.MethodGet, "/metrics", monitoring.Handler())
	router.Get("/api/support", srv.SupportHandler)

	// stateless pass-through to the provider
	router.Group(func(r chi.Router) {
		if srv.limiter != nil {
			r.Use(srv.limiter.Handler)
		}
		r.Handle("/api/proxy", proxy.NewHandler(srv.deps.Provider, logger))
	})

	// per-visitor storefront
	router.Group(func(r chi.Router) {
		r.Use(middleware.DeviceMiddleware(srv.deps.DeviceTokens, logger))

		r.Get("/api/session", srv.SessionHandler)
		r.Post("/api/session/view", srv.ToggleViewHandler)
		r.Post("/api/auth/signup", srv.SignUpHandler)
		r.Post("/api/auth/signin", srv.SignInHandler)
		r.Post("/api/auth/signout", srv.SignOutHandler)

		r.Get("/api/catalogue", srv.CatalogueHandler)
		r.Post("/api/catalogue/refresh", srv.RefreshCatalogueHandler)

		r.Get("/api/order", srv.OrderStateHandler)
		r.Put("/api/order/selection", srv.SelectionHandler)
		r.Put("/api/order/form", srv.OrderFormHandler)
		r.Post("/api/order/submit", srv.SubmitOrderHandler)
		r.Post("/api/order/back", srv.OrderBackHandler)
		r.Post("/api/order/verify", srv.VerifyOrderHandler)
		r.Post("/api/order/reset", srv.ResetOrderHandler)

		r.Get("/api/orders", srv.OrdersHandler)
		r.Post("/api/orders/refresh", srv.RefreshOrdersHandler)
		r.Post("/api/orders/{id}/refresh", srv.RefreshOrderHandler)
		r.Delete("/api/orders/{id}", srv.DeleteOrderHandler)

		r.Get("/api/funds", srv.FundsStateHandler)
		r.Put("/api/funds/method", srv.FundsMethodHandler)
		r.Put("/api/funds/amount", srv.FundsAmountHandler)
		r.Post("/api/funds/continue", srv.FundsContinueHandler)
		r.Post("/api/funds/back", srv.FundsBackHandler)
		r.Post("/api/funds/submit", srv.FundsSubmitHandler)
		r.Get("/api/funds/history", srv.FundsHistoryHandler)

		r.Route("/api/admin", func(r chi.Router) {
			r.Use(srv.adminOnly)
			r.Get("/stats", srv.AdminStatsHandler)
			r.Get("/users", srv.AdminUsersHandler)
			r.Post("/orders/refresh", srv.RefreshOrdersHandler)
			r.Post("/orders/{id}/refresh", srv.RefreshOrderHandler)
			r.Delete("/orders/{id}", srv.DeleteOrderHandler)
		})
	})

	return router
}

func (srv *Server) Run(ctx context.Context) error {
	router := srv.buildRouter()

	server := &http.Server{
		Addr:    srv.config.RunAddress,
		Handler: router,
	}

	go func() {
		srv.deps.Logger.Infof("listening on %s", srv.config.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			srv.deps.Logger.Fatalf("server error: %v", err)
		}
	}()

	go srv.Housekeeping(ctx)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// state returns the visitor state of the device that sent r.
func (srv *Server) state(r *http.Request) (*app.State, bool) {
	deviceID, ok := middleware.DeviceID(r.Context())
	if !ok {
		return nil, false
	}
	return srv.deps.Registry.Get(r.Context(), deviceID), true
}

func (srv *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, ok := srv.state(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unknown device")
			return
		}
		if st.View() != model.AdminView {
			writeError(w, http.StatusForbidden, "admin view is not active")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return false
	}
	return true
}

// writeProviderError answers with the provider's own message when it sent
// one and a generic gateway error otherwise.
func (srv *Server) writeProviderError(w http.ResponseWriter, err error, fallback string) {
	var perr *errs.ProviderError
	if errors.As(err, &perr) {
		writeError(w, http.StatusUnprocessableEntity, perr.Message)
		return
	}
	srv.deps.Logger.Errorf("%s: %v", fallback, err)
	writeError(w, http.StatusBadGateway, fallback)
}
