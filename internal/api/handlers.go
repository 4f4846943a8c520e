package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/garagedoor/internal/audit"
	"github.com/nerrad567/garagedoor/internal/garage"
)

// credentialsRequest is the request body for PUT /credentials.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// visibilityRequest is the request body for PUT /log/visibility.
type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

// connectRequest is the optional request body for POST /connect.
type connectRequest struct {
	Force bool `json:"force"`
}

// handleHealth returns the server health status. A failing component
// check reports "degraded" and still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := s.controller.Snapshot()

	status := "ok"
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	body := map[string]any{
		"status":         status,
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"state":          snap.State,
		"ws_clients":     s.hub.ClientCount(),
		"components":     components,
	}
	if s.lifecycle != nil {
		body["background"] = s.lifecycle.InBackground()
	}
	if s.logPersistedAt != nil {
		at, ok, err := s.logPersistedAt(ctx)
		switch {
		case err != nil:
			s.logger.Warn("reading log persistence time", "error", err)
		case ok:
			body["log_persisted_at"] = at.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// handleStatus returns the controller's current snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

// handleConnect asks for a connection. Without force it is debounced.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}
	s.post(w, r, garage.ConnectRequest{Force: req.Force}, audit.Entry{
		Action:  audit.ActionConnect,
		Details: map[string]any{"force": req.Force},
	})
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	door, ok := s.door(w, r)
	if !ok {
		return
	}
	s.post(w, r, garage.Press{Door: door}, audit.Entry{Action: audit.ActionPress, Door: door.String()})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	door, ok := s.door(w, r)
	if !ok {
		return
	}
	s.post(w, r, garage.Release{Door: door}, audit.Entry{Action: audit.ActionRelease, Door: door.String()})
}

// handleSetCredentials stores a new account. Empty fields remove the
// stored value.
func (s *Server) handleSetCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.post(w, r, garage.SetCredentials{Username: req.Username, Password: req.Password}, audit.Entry{
		Action:  audit.ActionCredentials,
		Details: map[string]any{"username": req.Username},
	})
}

// handleGetLog returns the diagnostic log with its account header.
func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	text, err := s.controller.ExportLog(r.Context())
	if err != nil {
		s.logger.Error("exporting log", "error", err)
		writeInternalError(w, "failed to read log")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(text))
}

func (s *Server) handleClearLog(w http.ResponseWriter, r *http.Request) {
	s.post(w, r, garage.ClearLog{}, audit.Entry{Action: audit.ActionLogClear})
}

func (s *Server) handleLogVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Visible == nil {
		writeBadRequest(w, "visible is required")
		return
	}
	s.post(w, r, garage.SetLogVisible{Visible: *req.Visible}, audit.Entry{
		Action:  audit.ActionLogVisibility,
		Details: map[string]any{"visible": *req.Visible},
	})
}

func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	if s.lifecycle == nil {
		writeNotFound(w, "lifecycle bridge not configured")
		return
	}
	if err := s.lifecycle.EnterBackground(); err != nil {
		s.postFailed(w, err)
		return
	}
	s.record(r, audit.Entry{Action: audit.ActionBackground})
	writeJSON(w, http.StatusAccepted, map[string]any{"background": true})
}

func (s *Server) handleForeground(w http.ResponseWriter, r *http.Request) {
	if s.lifecycle == nil {
		writeNotFound(w, "lifecycle bridge not configured")
		return
	}
	elapsed, err := s.lifecycle.EnterForeground()
	if err != nil {
		s.postFailed(w, err)
		return
	}
	s.record(r, audit.Entry{
		Action:  audit.ActionForeground,
		Details: map[string]any{"elapsed_seconds": elapsed.Seconds()},
	})
	writeJSON(w, http.StatusAccepted, map[string]any{
		"background":      false,
		"elapsed_seconds": elapsed.Seconds(),
	})
}

// door parses the {door} URL parameter, writing a 404 for unknown doors.
func (s *Server) door(w http.ResponseWriter, r *http.Request) (garage.Door, bool) {
	d, err := garage.ParseDoor(chi.URLParam(r, "door"))
	if err != nil {
		writeNotFound(w, err.Error())
		return 0, false
	}
	return d, true
}

// post queues ev and answers 202; the outcome is visible in the status.
// Accepted commands are added to the audit trail.
func (s *Server) post(w http.ResponseWriter, r *http.Request, ev garage.Event, entry audit.Entry) {
	if err := s.controller.Post(ev); err != nil {
		s.postFailed(w, err)
		return
	}
	s.record(r, entry)
	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true})
}

func (s *Server) postFailed(w http.ResponseWriter, err error) {
	if errors.Is(err, garage.ErrStopped) {
		writeUnavailable(w, "controller stopped")
		return
	}
	s.logger.Error("posting event", "error", err)
	writeInternalError(w, "failed to queue command")
}

// record stores entry with the caller's token subject. Failures are
// logged; the command has already been queued.
func (s *Server) record(r *http.Request, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if subject, ok := r.Context().Value(ctxKeySubject).(string); ok {
		entry.Subject = subject
	}
	entry.Source = audit.SourceAPI
	if err := s.audit.Create(r.Context(), &entry); err != nil {
		s.logger.Warn("recording audit entry", "action", entry.Action, "error", err)
	}
}

// handleListAudit returns the audit trail, newest first.
// Query parameters: action, door, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "audit trail not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action: q.Get("action"),
		Door:   q.Get("door"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeBadRequest(w, "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeBadRequest(w, "offset must be an integer")
		return
	}

	page, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// intParam parses an optional integer query parameter; empty yields 0.
func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
