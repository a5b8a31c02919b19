package server

import (
	"errors"
	"net/http"

	"github.com/and161185/topupbd/internal/admin"
	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ordersResponse struct {
	Orders     []model.Order   `json:"orders"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
	Failed     []string        `json:"failed,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func (srv *Server) CatalogueHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, st.Catalogue())
}

func (srv *Server) RefreshCatalogueHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, st.ReloadCatalogue(r.Context()))
}

func (srv *Server) OrderStateHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, st.Order.State())
}

// SelectionHandler changes category and/or service. Unknown ids leave the
// selection as it was.
func (srv *Server) SelectionHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	var req model.SelectionRequest
	if !decode(w, r, &req) {
		return
	}

	if req.Category != "" && req.Category != st.Order.State().Category {
		if err := st.Order.SelectCategory(req.Category); err != nil {
			srv.deps.Logger.Debugf("select category %q: %v", req.Category, err)
		}
	}
	if req.Service != "" {
		if err := st.Order.SelectService(req.Service); err != nil {
			srv.deps.Logger.Debugf("select service %q: %v", req.Service, err)
		}
	}

	writeJSON(w, http.StatusOK, st.Order.State())
}

func (srv *Server) OrderFormHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	var req model.OrderFormRequest
	if !decode(w, r, &req) {
		return
	}

	if req.Link != nil {
		st.Order.SetLink(*req.Link)
	}
	if req.Quantity != nil {
		st.Order.SetQuantity(*req.Quantity)
	}

	writeJSON(w, http.StatusOK, st.Order.State())
}

func (srv *Server) SubmitOrderHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	st.Order.Submit()
	writeJSON(w, http.StatusOK, st.Order.State())
}

func (srv *Server) OrderBackHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	st.Order.Back()
	writeJSON(w, http.StatusOK, st.Order.State())
}

func (srv *Server) ResetOrderHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	st.Order.Reset()
	writeJSON(w, http.StatusOK, st.Order.State())
}

func (srv *Server) VerifyOrderHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	var req model.TransactionRequest
	if !decode(w, r, &req) {
		return
	}

	if _, err := st.Order.Verify(r.Context(), req.TransactionID); err != nil {
		srv.writeProviderError(w, err, "failed to place order")
		return
	}

	writeJSON(w, http.StatusOK, st.Order.State())
}

func (srv *Server) OrdersHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, ordersOf(st.Book.Orders()))
}

// RefreshOrdersHandler refreshes every order. Orders that failed keep their
// previous status and are listed in "failed" with one "error" message.
func (srv *Server) RefreshOrdersHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	err := st.Book.RefreshAll(r.Context())

	resp := ordersOf(st.Book.Orders())
	var rerr *workflow.RefreshError
	if errors.As(err, &rerr) {
		resp.Failed = rerr.Failed
		resp.Error = "Failed to refresh order status"
		var perr *errs.ProviderError
		if errors.As(rerr.Err, &perr) {
			resp.Error = perr.Message
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (srv *Server) RefreshOrderHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	order, err := st.Book.Refresh(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, errs.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		srv.writeProviderError(w, err, "failed to refresh order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (srv *Server) DeleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	if err := st.Book.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func ordersOf(orders []model.Order) ordersResponse {
	return ordersResponse{Orders: orders, TotalSpent: admin.TotalSpent(orders)}
}
