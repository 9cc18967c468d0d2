package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/voicementor/voicementor/internal/application/command"
	"github.com/voicementor/voicementor/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// MENTOR ROUTES
// ══════════════════════════════════════════════════════════════════════════════

// mentorStatusRequest keeps isOnline raw: only a JSON boolean changes it.
type mentorStatusRequest struct {
	IsOnline     json.RawMessage `json:"isOnline"`
	Availability string          `json:"availability"`
}

func (req mentorStatusRequest) online() *bool {
	var b bool
	if len(req.IsOnline) == 0 || json.Unmarshal(req.IsOnline, &b) != nil {
		return nil
	}
	return &b
}

func (s *Server) handleListMentors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mentors, err := s.deps.Mentors.List(r.Context(), query.ListMentorsQuery{
		Skill:      q.Get("skill"),
		Language:   q.Get("language"),
		OnlineOnly: strings.EqualFold(q.Get("online"), "true"),
		Search:     q.Get("search"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, mentors)
}

func (s *Server) handleGetMentor(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Mentors.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", m)
}

func (s *Server) handleUpdateMentorStatus(w http.ResponseWriter, r *http.Request) {
	var req mentorStatusRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.UpdateMentorStatus.Handle(r.Context(), command.UpdateMentorStatusCommand{
		MentorID:     chi.URLParam(r, "id"),
		IsOnline:     req.online(),
		Availability: req.Availability,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Mentor status updated", m)
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	skills, err := s.deps.Mentors.Skills(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", skills)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := s.deps.Mentors.Languages(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", langs)
}
