package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voicementor/voicementor/internal/application/command"
	"github.com/voicementor/voicementor/internal/domain/session"
	"github.com/voicementor/voicementor/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION ROUTES
// ══════════════════════════════════════════════════════════════════════════════

type createSessionRequest struct {
	ID            string   `json:"id"`
	MentorID      string   `json:"mentorId"`
	MentorName    string   `json:"mentorName"`
	UserID        string   `json:"userId"`
	Skill         string   `json:"skill"`
	ScheduledTime string   `json:"scheduledTime"`
	Duration      int      `json:"duration"`
	Status        string   `json:"status"`
	Type          string   `json:"type"`
	Notes         string   `json:"notes"`
	Rating        *float64 `json:"rating"`
}

type endSessionRequest struct {
	Rating *float64 `json:"rating"`
	Notes  string   `json:"notes"`
}

var errBadScheduledTime = shared.NewError("session.Create", shared.ErrInvalidInput,
	"scheduledTime must be an RFC 3339 timestamp")

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var at time.Time
	if req.ScheduledTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.ScheduledTime)
		if err != nil {
			s.writeError(w, r, errBadScheduledTime)
			return
		}
		at = parsed
	}

	sess, err := s.deps.Sessions.Create(r.Context(), command.CreateSessionCommand{
		ID:            req.ID,
		MentorID:      req.MentorID,
		MentorName:    req.MentorName,
		UserID:        req.UserID,
		Skill:         req.Skill,
		ScheduledTime: at,
		Duration:      req.Duration,
		Status:        session.Status(req.Status),
		Type:          session.Kind(req.Type),
		Notes:         req.Notes,
		Rating:        req.Rating,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Session scheduled successfully", sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.deps.SessionsQuery.List(r.Context(), session.Filter{
		UserID:   q.Get("userId"),
		MentorID: q.Get("mentorId"),
		Status:   session.Status(q.Get("status")),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, list)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.SessionsQuery.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", sess)
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var patch session.Patch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Session updated successfully", sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Session deleted successfully", sess)
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Join(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Session joined successfully", sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.End(r.Context(), command.EndSessionCommand{
		ID:     chi.URLParam(r, "id"),
		Rating: req.Rating,
		Notes:  req.Notes,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Session completed successfully", sess)
}
