package api

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/nerrad567/pawl-core/internal/auth"
)

// maxMemoryForm bounds the in-memory part of multipart bodies.
const maxMemoryForm = 64 << 10

// parseForm accepts both multipart and urlencoded bodies, as the admin app
// sends FormData.
func parseForm(r *http.Request) error {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && strings.HasPrefix(ct, "multipart/") {
		return r.ParseMultipartForm(maxMemoryForm)
	}
	return r.ParseForm()
}

// formFields parses the body and returns the named fields. Missing fields
// come back empty; the service layer rejects them.
func formFields(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	if err := parseForm(r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return nil, false
		}
		writeBadRequest(w, "malformed form body")
		return nil, false
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = r.PostFormValue(name)
	}
	return out, true
}

func (s *Server) secureCookies() bool {
	return !s.secCfg.InsecureCookies
}

// handleLogin checks credentials and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	f, ok := formFields(w, r, "username", "password")
	if !ok {
		return
	}

	sess, err := s.auth.Login(r.Context(), f[0], f[1])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, auth.SessionCookie(sess, s.auth.Sessions().Lifetime(), s.secureCookies()))
	writeJSON(w, http.StatusOK, sess)
}

// handleLogout revokes the caller's session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(tokenFromContext(r.Context()))
	http.SetCookie(w, auth.ClearedCookie(s.secureCookies()))
	writeOK(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.ListUsers())
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	f, ok := formFields(w, r, "username", "passhash")
	if !ok {
		return
	}
	if err := s.auth.AddUser(r.Context(), f[0], f[1]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

// handleEditUser replaces a password. Every session of the edited user,
// the caller's own included, is revoked.
func (s *Server) handleEditUser(w http.ResponseWriter, r *http.Request) {
	f, ok := formFields(w, r, "username", "passhash")
	if !ok {
		return
	}
	if err := s.auth.EditUser(r.Context(), f[0], f[1]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	f, ok := formFields(w, r, "username")
	if !ok {
		return
	}
	if err := s.auth.RemoveUser(r.Context(), f[0]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.ListDevices())
}

func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	f, ok := formFields(w, r, "network_id", "key")
	if !ok {
		return
	}
	if err := s.auth.AddDevice(r.Context(), f[0], f[1]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleEditDevice(w http.ResponseWriter, r *http.Request) {
	f, ok := formFields(w, r, "network_id", "key")
	if !ok {
		return
	}
	if err := s.auth.EditDevice(r.Context(), f[0], f[1]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	f, ok := formFields(w, r, "network_id")
	if !ok {
		return
	}
	if err := s.auth.RemoveDevice(r.Context(), f[0]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}

// handleRatchetDevices returns full device records, shared keys included.
func (s *Server) handleRatchetDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.auth.Devices())
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"body": s.auth.Policy()})
}

func (s *Server) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	f, ok := formFields(w, r, "body")
	if !ok {
		return
	}
	if err := s.auth.SetPolicy(r.Context(), f[0]); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeOK(w)
}
