package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/paulthvt/solareco/pkg/log"
)

// authMiddleware guards the API with the optional OIDC cookie. The vendor
// login endpoints stay reachable so the dashboard can bootstrap itself.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))
		r = r.WithContext(ctx)

		if s.bypassAuth {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(authTokenCookie)
		if err != nil || cookie.Value == "" {
			writeJSONError(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		if _, err := s.oidcVerifier(ctx, cookie.Value); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "token validation failed", slog.Any("error", err))
			writeJSONError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeJSONError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	if err := s.sessions.Login(ctx, req.Email, req.Password); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "login failed", slog.Any("error", err))
		writeJSONError(w, "login failed", http.StatusUnauthorized)
		return
	}
	writeJSON(w, struct {
		Email string `json:"email"`
	}{Email: req.Email})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context()); err != nil {
		writeJSONError(w, "logout failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	_, email := s.sessions.Session()
	writeJSON(w, struct {
		LoggedIn bool   `json:"loggedIn"`
		Email    string `json:"email,omitempty"`
	}{
		LoggedIn: s.sessions.LoggedIn(time.Now()),
		Email:    email,
	})
}
