package server

import (
	"net/http"

	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/models"
)

// handleClassify handles GET /api/instruments/{ticker}/classify.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)
	if _, err := models.LiveRequest(ticker); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "invalid ticker", codeInvalidTicker)
		return
	}
	WriteJSON(w, http.StatusOK, instrument.Describe(ticker, s.app.Defaults))
}

// handleInstrumentList handles GET /api/instruments.
func (s *Server) handleInstrumentList(w http.ResponseWriter, r *http.Request) {
	instruments, err := s.app.Storage.InstrumentStore().ListCachedInstruments(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list instruments")
		WriteError(w, http.StatusInternalServerError, "Failed to list instruments")
		return
	}
	if instruments == nil {
		instruments = []*models.CachedInstrument{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"instruments": instruments,
		"count":       len(instruments),
	})
}

// handleStockDataRefresh handles POST /api/stockdata/refresh. The refresh
// runs in the request; slow providers make this take minutes.
func (s *Server) handleStockDataRefresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.app.StockData.Refresh(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Msg("Stock data refresh failed")
		WriteError(w, http.StatusServiceUnavailable, "Stock data refresh interrupted: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// handleStockDataStats handles GET /api/stockdata/stats.
func (s *Server) handleStockDataStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.StockData.Stats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read stock data stats")
		WriteError(w, http.StatusInternalServerError, "Failed to read stock data stats")
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
