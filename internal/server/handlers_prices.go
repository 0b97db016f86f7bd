package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bobmcallan/folio/internal/instrument"
	"github.com/bobmcallan/folio/internal/models"
)

// Batch request limits.
const (
	maxBatchRequests = 2000
	maxBatchBudget   = 5 * time.Minute
)

// priceRequestItem is one entry of a batch request body.
type priceRequestItem struct {
	Ticker string `json:"ticker"`
	Date   string `json:"date,omitempty"`
}

// batchRequest is the POST /api/prices/batch body. Requests may be native
// objects or string-encoded objects.
type batchRequest struct {
	Requests      json.RawMessage `json:"requests"`
	BudgetSeconds float64         `json:"budget_seconds,omitempty"`
}

// priceResult pairs a request with its quote; Quote is nil when unresolved.
type priceResult struct {
	Ticker string                `json:"ticker"`
	Date   string                `json:"date,omitempty"`
	Kind   models.InstrumentKind `json:"kind"`
	Quote  *models.PriceQuote    `json:"quote"`
}

type batchResponse struct {
	Requested int           `json:"requested"`
	Resolved  int           `json:"resolved"`
	Results   []priceResult `json:"results"`
}

func newPriceResult(req models.PriceRequest, q *models.PriceQuote) priceResult {
	res := priceResult{Ticker: req.Ticker(), Kind: instrument.Classify(req.Ticker()), Quote: q}
	if d, ok := req.AsOf(); ok {
		res.Date = d.Format(models.DateLayout)
	}
	return res
}

// tickerParam returns the unescaped {ticker} path segment.
func tickerParam(r *http.Request) string {
	raw := chi.URLParam(r, "ticker")
	if t, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(t)
	}
	return strings.TrimSpace(raw)
}

// handlePrice handles GET /api/prices/{ticker}?date=YYYY-MM-DD.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r.URL.Query().Get("date"))
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), codeInvalidDate)
		return
	}
	req, err := models.NewPriceRequest(tickerParam(r), date)
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), codeInvalidTicker)
		return
	}

	q := s.app.Resolver.Resolve(r.Context(), req, s.userID(r))
	WriteJSON(w, http.StatusOK, newPriceResult(req, q))
}

// handlePriceBatch handles POST /api/prices/batch.
func (s *Server) handlePriceBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if !DecodeJSON(w, r, &body) {
		return
	}

	var items []priceRequestItem
	if err := UnmarshalArrayParam(body.Requests, &items); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "requests must be an array of {ticker, date}", codeInvalidRequest)
		return
	}
	if len(items) == 0 {
		WriteErrorWithCode(w, http.StatusBadRequest, "requests must not be empty", codeInvalidRequest)
		return
	}
	if len(items) > maxBatchRequests {
		WriteErrorWithCode(w, http.StatusBadRequest, fmt.Sprintf("at most %d requests per batch", maxBatchRequests), codeInvalidRequest)
		return
	}

	requests := make([]models.PriceRequest, 0, len(items))
	for i, item := range items {
		date, err := parseDateParam(item.Date)
		if err != nil {
			WriteErrorWithCode(w, http.StatusBadRequest, fmt.Sprintf("requests[%d]: %v", i, err), codeInvalidDate)
			return
		}
		req, err := models.NewPriceRequest(strings.TrimSpace(item.Ticker), date)
		if err != nil {
			WriteErrorWithCode(w, http.StatusBadRequest, fmt.Sprintf("requests[%d]: %v", i, err), codeInvalidTicker)
			return
		}
		requests = append(requests, req)
	}

	budget := s.app.Config.Batch.GetTimeBudget()
	if body.BudgetSeconds > 0 {
		budget = time.Duration(body.BudgetSeconds * float64(time.Second))
	}
	if budget > maxBatchBudget {
		budget = maxBatchBudget
	}

	result := s.app.Batch.ResolveBatch(r.Context(), requests, s.userID(r), budget)

	resp := batchResponse{
		Requested: len(requests),
		Resolved:  0,
		Results:   make([]priceResult, 0, len(requests)),
	}
	for _, req := range requests {
		q, _ := result.Lookup(req)
		if q != nil {
			resp.Resolved++
		}
		resp.Results = append(resp.Results, newPriceResult(req, q))
	}
	WriteJSON(w, http.StatusOK, resp)
}
