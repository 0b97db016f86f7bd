package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
	"github.com/bobmcallan/folio/internal/services/importer"
)

// importErrorResponse carries the already imported file on a duplicate.
type importErrorResponse struct {
	ErrorResponse
	File *models.InvestmentFile `json:"file,omitempty"`
}

// handleImportUpload handles POST /api/imports with a multipart "file" field.
func (s *Server) handleImportUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, importer.MaxFileSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "Invalid multipart upload: "+err.Error(), codeInvalidFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteErrorWithCode(w, http.StatusBadRequest, "Missing form field \"file\"", codeInvalidFile)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		WriteErrorWithCode(w, http.StatusBadRequest, "Only .csv files are accepted", codeInvalidFile)
		return
	}

	userID := s.userID(r)
	result, err := s.app.Importer.Import(r.Context(), userID, header.Filename, file)
	switch {
	case err == nil:
		WriteJSON(w, http.StatusCreated, result)
	case errors.Is(err, interfaces.ErrDuplicateFile):
		resp := importErrorResponse{ErrorResponse: ErrorResponse{Error: err.Error(), Code: codeDuplicateFile}}
		if result != nil {
			resp.File = result.File
		}
		WriteJSON(w, http.StatusConflict, resp)
	case errors.Is(err, importer.ErrInvalidFile), errors.Is(err, importer.ErrFileTooLarge):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), codeInvalidFile)
	default:
		s.logger.Error().Err(err).Str("file", header.Filename).Str("user_id", userID).Msg("Import failed")
		WriteError(w, http.StatusInternalServerError, "Import failed")
	}
}

// handleImportList handles GET /api/imports.
func (s *Server) handleImportList(w http.ResponseWriter, r *http.Request) {
	files, err := s.app.Storage.FileStore().ListFiles(r.Context(), s.userID(r))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list imports")
		WriteError(w, http.StatusInternalServerError, "Failed to list imports")
		return
	}
	if files == nil {
		files = []*models.InvestmentFile{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"files": files,
		"count": len(files),
	})
}

// handleTransactionList handles GET /api/transactions?ticker=.
func (s *Server) handleTransactionList(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	txns, err := s.app.Storage.TransactionStore().GetTransactions(r.Context(), s.userID(r), ticker)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list transactions")
		WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txns,
		"count":        len(txns),
	})
}
