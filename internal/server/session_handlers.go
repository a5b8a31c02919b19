package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/and161185/topupbd/internal/app"
	"github.com/and161185/topupbd/internal/errs"
	"github.com/and161185/topupbd/internal/model"
)

type sessionResponse struct {
	User model.UserData `json:"user"`
	View model.View     `json:"view"`
}

type supportResponse struct {
	Telegram string            `json:"telegram"`
	WhatsApp string            `json:"whatsapp"`
	Numbers  map[string]string `json:"numbers"`
}

func sessionOf(st *app.State) sessionResponse {
	return sessionResponse{User: st.Identity.CurrentUser(), View: st.View()}
}

func (srv *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	writeJSON(w, http.StatusOK, sessionOf(st))
}

func (srv *Server) ToggleViewHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}
	st.ToggleView()
	writeJSON(w, http.StatusOK, sessionOf(st))
}

func (srv *Server) SignUpHandler(w http.ResponseWriter, r *http.Request) {
	srv.authenticate(w, r, func(st *app.State, creds model.Credentials) error {
		return st.Identity.SignUp(r.Context(), creds)
	})
}

func (srv *Server) SignInHandler(w http.ResponseWriter, r *http.Request) {
	srv.authenticate(w, r, func(st *app.State, creds model.Credentials) error {
		return st.Identity.SignIn(r.Context(), creds)
	})
}

func (srv *Server) authenticate(w http.ResponseWriter, r *http.Request, do func(*app.State, model.Credentials) error) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	var creds model.Credentials
	if !decode(w, r, &creds) {
		return
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	if err := do(st, creds); err != nil {
		switch {
		case errors.Is(err, errs.ErrLoginAlreadyExists):
			writeError(w, http.StatusConflict, "email already registered")
		case errors.Is(err, errs.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			srv.deps.Logger.Errorf("authenticate: %v", err)
			writeError(w, http.StatusBadGateway, "auth backend unavailable")
		}
		return
	}

	writeJSON(w, http.StatusOK, sessionOf(st))
}

func (srv *Server) SignOutHandler(w http.ResponseWriter, r *http.Request) {
	st, ok := srv.state(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unknown device")
		return
	}

	if err := st.Identity.SignOut(r.Context()); err != nil {
		srv.deps.Logger.Errorf("sign out: %v", err)
	}
	writeJSON(w, http.StatusOK, sessionOf(st))
}

func (srv *Server) SupportHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, supportResponse{
		Telegram: srv.config.TelegramURL,
		WhatsApp: srv.config.WhatsAppURL,
		Numbers: map[string]string{
			string(model.Nagad): srv.config.NagadNumber,
			string(model.Bkash): srv.config.BkashNumber,
		},
	})
}
