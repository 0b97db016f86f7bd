package server

import (
	"net/http"
	"time"

	"github.com/bobmcallan/folio/internal/common"
)

// handleHealth responds with {"status":"ok"}.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// versionResponse extends the build info with uptime.
type versionResponse struct {
	common.VersionInfo
	Uptime string `json:"uptime"`
}

// handleVersion responds with build metadata.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, versionResponse{
		VersionInfo: common.GetVersionInfo(),
		Uptime:      time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}
