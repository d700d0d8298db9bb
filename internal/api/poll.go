package api

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// pollResponse is the long-poll result.
type pollResponse struct {
	Epoch uint64 `json:"epoch"`
}

// handlePoll parks the request until the epoch moves past the caller's.
//
// With ?epoch=N and N stale the current epoch comes back at once. Without
// it, or with N current, the request waits for the next mutation. When the
// long-poll window elapses or the server starts closing, the unchanged epoch
// is returned and the client simply polls again. A dropped connection
// abandons the wait.
//
// The caller's credentials are checked again before answering, so a session
// revoked while parked gets 401 instead of the new epoch. Ratchet callers
// whose key no longer matches get the same 404 as on entry.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	var known *uint64
	if raw := r.URL.Query().Get("epoch"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "epoch must be a non-negative integer")
			return
		}
		known = &n
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	if s.longPoll > 0 {
		var cancelWindow context.CancelFunc
		ctx, cancelWindow = context.WithTimeout(ctx, s.longPoll)
		defer cancelWindow()
	}
	stop := context.AfterFunc(s.closing, cancel)
	defer stop()

	start := time.Now()
	epoch, err := s.bus.Wait(ctx, known)
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Debug("long poll abandoned",
				"waited_ms", time.Since(start).Milliseconds(),
				"request_id", r.Context().Value(ctxKeyRequestID),
			)
			return
		}
		epoch = s.bus.Epoch()
	}

	if token := tokenFromContext(r.Context()); token != "" {
		if _, err := s.auth.Authenticate(token); err != nil {
			writeUnauthorized(w, "session ended")
			return
		}
	} else if err := s.auth.AuthenticateAPI(r.Header.Get(APIKeyHeader)); err != nil {
		writeNotFound(w, "no such route")
		return
	}
	writeJSON(w, http.StatusOK, pollResponse{Epoch: epoch})
}

