package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
	"github.com/and161185/topupbd/internal/workflow"
)

type fundsSubmitResponse struct {
	State  workflow.FundsState  `json:"state"`
	Record *model.PaymentRecord `json:"record,omitempty"`
}

func (srv *Server) FundsStateHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, st.Funds.State())
}

func (srv *Server) FundsMethodHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	var req model.MethodRequest
	if !decode(w, r, &req) {
		return
	}

	if err := st.Funds.SelectMethod(req.Method); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, st.Funds.State())
}

func (srv *Server) FundsAmountHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	var req model.AmountRequest
	if !decode(w, r, &req) {
		return
	}

	st.Funds.SetAmount(req.Amount)
	writeJSON(w, http.StatusOK, st.Funds.State())
}

func (srv *Server) FundsContinueHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	if err := st.Funds.Continue(); err != nil {
		if errors.Is(err, errs.ErrBelowMinimum) {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Minimum amount is %s BDT", st.Funds.State().Minimum))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, st.Funds.State())
}

func (srv *Server) FundsBackHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	st.Funds.Back()
	writeJSON(w, http.StatusOK, st.Funds.State())
}

// FundsSubmitHandler blocks for the configured processing delay.
func (srv *Server) FundsSubmitHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	var req model.TransactionRequest
	if !decode(w, r, &req) {
		return
	}

	record, err := st.Funds.Submit(r.Context(), req.TransactionID)
	if err != nil {
		srv.deps.Logger.Warnf("fund request cancelled: %v", err)
		writeError(w, http.StatusRequestTimeout, "request cancelled")
		return
	}

	writeJSON(w, http.StatusOK, fundsSubmitResponse{State: st.Funds.State(), Record: record})
}

func (srv *Server) FundsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, st.Funds.History())
}
