package server

import (
	"github.com/go-chi/chi/v5"
)

// registerRoutes sets up all REST API routes.
func (s *Server) registerRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// System
		r.Get("/health", s.handleHealth)
		r.Head("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)

		// Prices
		r.Get("/prices/{ticker}", s.handlePrice)
		r.Post("/prices/batch", s.handlePriceBatch)

		// Instruments
		r.Get("/instruments", s.handleInstrumentList)
		r.Get("/instruments/{ticker}/classify", s.handleClassify)

		// Stock data
		r.Post("/stockdata/refresh", s.handleStockDataRefresh)
		r.Get("/stockdata/stats", s.handleStockDataStats)

		// Imports and transactions
		r.Post("/imports", s.handleImportUpload)
		r.Get("/imports", s.handleImportList)
		r.Get("/transactions", s.handleTransactionList)

		// Portfolio
		r.Get("/portfolio/valuation", s.handleValuation)
		r.Get("/portfolio/allocation.png", s.handleAllocationChart)
	})
}
