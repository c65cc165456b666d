package api

import "net/http"

// getHealth reports server liveness and database connectivity.
// GET /api/health
func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "not_configured"
	if s.database != nil {
		if err := s.database.Pool.PingContext(r.Context()); err != nil {
			dbStatus = "unreachable"
		} else {
			dbStatus = "ok"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"database": dbStatus,
	})
}
