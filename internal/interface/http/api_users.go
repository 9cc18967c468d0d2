package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voicementor/voicementor/internal/application/command"
	"github.com/voicementor/voicementor/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER ROUTES
// ══════════════════════════════════════════════════════════════════════════════

type createUserRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Role      string   `json:"role"`
	Language  string   `json:"language"`
	Location  string   `json:"location"`
	Interests []string `json:"interests"`
	Level     string   `json:"level"`
	Progress  int      `json:"progress"`
	Sessions  int      `json:"sessions"`
	Avatar    string   `json:"avatar"`
	Pin       string   `json:"pin"`
}

type loginRequest struct {
	Phone string `json:"phone"`
	Pin   string `json:"pin"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.deps.RegisterUser.Handle(r.Context(), command.RegisterUserCommand{
		ID:        req.ID,
		Name:      req.Name,
		Phone:     req.Phone,
		Role:      req.Role,
		Language:  req.Language,
		Location:  req.Location,
		Interests: req.Interests,
		Level:     req.Level,
		Progress:  req.Progress,
		Sessions:  req.Sessions,
		Avatar:    req.Avatar,
		Pin:       req.Pin,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "User created successfully", u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Users.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeList(w, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch user.Patch
	if err := decode(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.deps.UpdateUser.Handle(r.Context(), command.UpdateUserCommand{
		ID:    chi.URLParam(r, "id"),
		Patch: patch,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User updated successfully", u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.deps.Login.Handle(r.Context(), command.LoginCommand{Phone: req.Phone, Pin: req.Pin})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Login successful", u)
}
