package server

import (
	"net/http"

	"github.com/and161185/topupbd/internal/admin"
)

// AdminStatsHandler summarizes the visitor's orders and the profile table.
// The panel balance is omitted when the provider cannot be reached.
func (srv *Server) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	profiles, err := st.Identity.Profiles(r.Context())
	if err != nil {
		srv.deps.Logger.Errorf("list profiles: %v", err)
	}

	stats := admin.Summarize(st.Book.Orders(), profiles)
	if balance, err := st.PanelBalance(r.Context()); err != nil {
		srv.deps.Logger.Warnf("panel balance: %v", err)
	} else {
		stats.PanelBalance = &balance
	}

	writeJSON(w, http.StatusOK, stats)
}

func (srv *Server) AdminUsersHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	profiles, err := st.Identity.Profiles(r.Context())
	if err != nil {
		srv.deps.Logger.Errorf("list profiles: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load users")
		return
	}

	writeJSON(w, http.StatusOK, admin.FilterUsers(profiles, r.URL.Query().Get("q")))
}
