package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Paths match the admin web app: flat, form-encoded, cookie-authenticated.
// Ratchet nodes use the /ratchet group with the API key header instead.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	// No auth required
	r.Get("/health", s.handleHealth)
	r.Post("/trylogin", s.handleLogin)

	// Operator routes (session cookie)
	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Post("/logout", s.handleLogout)

		r.Get("/getusers", s.handleListUsers)
		r.Post("/adduser", s.handleAddUser)
		r.Post("/edituser", s.handleEditUser)
		r.Post("/rmuser", s.handleRemoveUser)

		r.Get("/getdevs", s.handleListDevices)
		r.Post("/adddev", s.handleAddDevice)
		r.Post("/editdev", s.handleEditDevice)
		r.Post("/rmdev", s.handleRemoveDevice)

		r.Get("/getpolicy", s.handleGetPolicy)
		r.Post("/setpolicy", s.handleSetPolicy)

		r.Get("/poll", s.handlePoll)
		r.Get("/ws", s.handleWebSocket)
	})

	// Ratchet node routes (API key header)
	r.Route("/ratchet", func(r chi.Router) {
		r.Use(s.apiKeyMiddleware)

		r.Get("/devices", s.handleRatchetDevices)
		r.Get("/policy", s.handleGetPolicy)
		r.Get("/poll", s.handlePoll)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("health check: database unavailable", "error", err)
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"epoch":   s.bus.Epoch(),
	})
}
