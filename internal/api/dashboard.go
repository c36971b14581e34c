package api

import (
	_ "embed"
	"net/http"
)

//go:embed static/index.html
var dashboardHTML []byte

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dashboardHTML); err != nil {
		s.logger.Error().Err(err).Msg("failed to write dashboard page")
	}
}
