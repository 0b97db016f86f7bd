package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/valuation"
)

// handleValuation handles GET /api/portfolio/valuation.
func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	v, err := s.app.Valuation.GetValuation(r.Context(), s.userID(r))
	if err != nil {
		s.logger.Error().Err(err).Msg("Valuation failed")
		WriteError(w, http.StatusInternalServerError, "Valuation failed")
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

// handleAllocationChart handles GET /api/portfolio/allocation.png?by=sector|channel.
func (s *Server) handleAllocationChart(w http.ResponseWriter, r *http.Request) {
	by := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("by")))
	if by == "" {
		by = "sector"
	}
	if by != "sector" && by != "channel" {
		WriteErrorWithCode(w, http.StatusBadRequest, "by must be sector or channel", codeInvalidRequest)
		return
	}

	v, err := s.app.Valuation.GetValuation(r.Context(), s.userID(r))
	if err != nil {
		s.logger.Error().Err(err).Msg("Valuation failed")
		WriteError(w, http.StatusInternalServerError, "Valuation failed")
		return
	}

	var slices []models.AllocationSlice
	title := "Allocation by Sector"
	if by == "channel" {
		slices = v.ByChannel
		title = "Allocation by Channel"
	} else {
		slices = v.BySector
	}
	if len(slices) == 0 {
		WriteError(w, http.StatusNotFound, "No holdings to chart")
		return
	}
	if v.EstimatedHoldings > 0 {
		title += " (includes estimated prices)"
	}

	png, err := valuation.RenderAllocationChart(title, slices)
	if err != nil {
		s.logger.Error().Err(err).Msg("Chart render failed")
		WriteError(w, http.StatusInternalServerError, "Chart render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
