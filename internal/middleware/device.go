package middleware

import (
	"context"
	"net/http"

	"github.com/and161185/topupbd/internal/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DeviceCookie = "tbd_device"
	deviceKind   = "device"
)

type contextKey string

const DeviceContextKey contextKey = "device"

// DeviceMiddleware identifies the browser by a signed cookie, issuing a new
// device id when the cookie is missing or does not verify.
func DeviceMiddleware(tm *auth.TokenManager, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var deviceID string
			if c, err := r.Cookie(DeviceCookie); err == nil {
				deviceID, _ = tm.ParseToken(deviceKind, c.Value)
			}

			if deviceID == "" {
				deviceID = uuid.NewString()
				token, err := tm.GenerateToken(deviceKind, deviceID)
				if err != nil {
					logger.Errorf("sign device cookie: %v", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     DeviceCookie,
					Value:    token,
					Path:     "/",
					MaxAge:   int(tm.TTL().Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), DeviceContextKey, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func DeviceID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(DeviceContextKey).(string)
	return id, ok && id != ""
}
