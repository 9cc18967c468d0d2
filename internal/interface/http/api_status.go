package http

import "net/http"

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, true, "Hello from VoiceMentor server!")
}

// handleHealth runs every registered check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeData(w, http.StatusOK, "healthy", map[string]string{"uptime": s.Uptime().String()})
		return
	}
	status := s.deps.Health.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, Envelope{Success: status.Healthy, Message: status.Message, Data: status})
}

// handleReady answers readiness checks from the load balancer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil && !s.deps.Health.Check(r.Context()).Ready {
		writeMessage(w, http.StatusServiceUnavailable, false, "not ready")
		return
	}
	writeMessage(w, http.StatusOK, true, "ready")
}

// handleLive answers liveness checks. It never touches dependencies.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, true, "alive")
}
