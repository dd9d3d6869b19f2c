package httpapi

import (
	"errors"
	"net/http"
	"time"

	"fullpega.cl/internal/auth"
	"fullpega.cl/internal/obs"
)

type loginRequest struct {
	Rut      string `json:"rut"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		obs.ObserveLogin("validation")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.auth.Login(r.Context(),
		auth.Credentials{Rut: req.Rut, Password: req.Password},
		auth.ClientInfo{
			UserAgent:    r.UserAgent(),
			ForwardedFor: r.Header.Get("X-Forwarded-For"),
			RemoteAddr:   r.RemoteAddr,
		},
	)
	if err != nil {
		a.handleLoginError(w, r, err)
		return
	}

	obs.ObserveLogin("ok")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	})
}

// handleLoginError maps service errors to responses. Not-found and
// wrong-password deliberately share one body so the endpoint does not
// leak which accounts exist; logs and metrics keep the distinction.
func (a *API) handleLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		obs.ObserveLogin("validation")
		writeError(w, r, http.StatusBadRequest, "rut and password are required")
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, auth.ErrBadCredentials):
		obs.ObserveLogin("unauthorized")
		obs.LogEvent("auth.login.rejected", map[string]any{
			"reason":     rejectReason(err),
			"request_id": RequestIDFromContext(r.Context()),
		})
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrConfiguration):
		obs.ObserveLogin("error")
		writeError(w, r, http.StatusInternalServerError, "server configuration error")
	default:
		obs.ObserveLogin("error")
		obs.LogEvent("auth.login.failed", map[string]any{
			"error":      err.Error(),
			"request_id": RequestIDFromContext(r.Context()),
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// handleMe echoes the verified claims of the caller's bearer token.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "missing bearer token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        claims.Name,
		"rut":         claims.Rut,
		"permissions": claims.Permissions,
		"expires_at":  claims.ExpiresAt.Time,
	})
}

type sessionResponse struct {
	ID         string    `json:"id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  *string   `json:"ip_address,omitempty"`
	Country    *string   `json:"country,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsRevoked  bool      `json:"is_revoked"`
}

// handleSessions lists the caller's recent session audit rows.
// Requires the session-audit permission.
func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if err := requirePermission(r.Context(), auth.PermSessionsRead); err != nil {
		writeError(w, r, http.StatusForbidden, err.Error())
		return
	}
	claims, _ := auth.ClaimsFromContext(r.Context())

	sessions, err := a.auth.Sessions(r.Context(), claims.Rut, 20)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			DeviceInfo: s.DeviceInfo,
			IPAddress:  s.IPAddress,
			Country:    s.Country,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt,
			IsRevoked:  s.IsRevoked,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func rejectReason(err error) string {
	if errors.Is(err, auth.ErrNotFound) {
		return "user_not_found"
	}
	return "bad_password"
}
