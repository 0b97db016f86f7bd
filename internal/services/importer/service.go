// Package importer ingests broker CSV exports into investment_transactions,
// filling missing prices through the batch coordinator.
package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// Compile-time interface check
var _ interfaces.ImportService = (*Service)(nil)

// MaxFileSize bounds a single upload.
const MaxFileSize = 10 << 20

var (
	// ErrFileTooLarge is returned for files over MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidFile wraps every CSV parse failure.
	ErrInvalidFile = errors.New("invalid transaction file")
)

// Options configures the inbox and price fill.
type Options struct {
	InboxDir   string
	ArchiveDir string
	Budget     time.Duration // zero uses the coordinator default
}

// OptionsFromConfig reads the importer config section.
func OptionsFromConfig(c common.ImporterConfig) Options {
	return Options{InboxDir: c.InboxDir, ArchiveDir: c.ArchiveDir}
}

// Service implements ImportService
type Service struct {
	transactions interfaces.TransactionStore
	files        interfaces.FileStore
	batch        interfaces.BatchResolver
	quotes       interfaces.QuoteInvalidator
	opts         Options
	logger       *common.Logger
	now          func() time.Time
}

// NewService creates a new import service. quotes may be nil; otherwise the
// live quotes of every imported ticker are dropped after a successful import.
func NewService(transactions interfaces.TransactionStore, files interfaces.FileStore, batch interfaces.BatchResolver, quotes interfaces.QuoteInvalidator, opts Options, logger *common.Logger) *Service {
	return &Service{
		transactions: transactions,
		files:        files,
		batch:        batch,
		quotes:       quotes,
		opts:         opts,
		logger:       logger,
		now:          time.Now,
	}
}

// Import parses one CSV file, resolves missing prices in a single batch and
// persists the file record and its transactions. A file whose content was
// already imported returns a Duplicate result wrapping ErrDuplicateFile. The
// file record claims the content hash first and is removed again when the
// transactions cannot be stored, so the file can be retried.
func (s *Service) Import(ctx context.Context, userID, filename string, r io.Reader) (*models.ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", filename, MaxFileSize, ErrFileTooLarge)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if existing, err := s.files.GetFileByHash(ctx, hash); err == nil {
		return &models.ImportResult{File: existing, Duplicate: true},
			fmt.Errorf("%s: %w", filename, interfaces.ErrDuplicateFile)
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}

	p, err := parseCSV(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidFile, filename, err)
	}

	result := &models.ImportResult{
		Rows:     p.total,
		Skipped:  p.total - len(p.rows),
		Warnings: p.warnings,
	}

	txns := s.buildTransactions(userID, p.rows)
	s.fillPrices(ctx, userID, txns, result)

	file := &models.InvestmentFile{
		ID:               uuid.New().String(),
		UserID:           userID,
		Filename:         filepath.Base(filename),
		OriginalFilename: filename,
		FileHash:         hash,
		Channel:          ChannelFromFilename(filename),
		FileSize:         int64(len(data)),
		RowCount:         len(txns),
		Status:           models.FileStatusProcessed,
		UploadedAt:       s.now().UTC(),
	}
	if result.Unresolved > 0 || result.Skipped > 0 {
		file.Status = models.FileStatusPartial
	}

	if err := s.files.SaveFile(ctx, file); err != nil {
		if errors.Is(err, interfaces.ErrDuplicateFile) {
			return &models.ImportResult{File: file, Duplicate: true}, err
		}
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}
	for _, t := range txns {
		t.FileID = file.ID
	}
	if err := s.transactions.SaveTransactions(ctx, txns); err != nil {
		if delErr := s.files.DeleteFile(context.WithoutCancel(ctx), hash); delErr != nil {
			s.logger.Error().Err(delErr).Str("file", filename).Msg("Failed to release file record")
		}
		return nil, fmt.Errorf("failed to save transactions: %w", err)
	}
	s.invalidate(txns)

	result.File = file
	s.logger.Info().
		Str("file", filename).
		Str("user", userID).
		Int("rows", result.Rows).
		Int("recorded", result.Recorded).
		Int("resolved", result.Resolved).
		Int("unresolved", result.Unresolved).
		Int("skipped", result.Skipped).
		Msg("File imported")

	return result, nil
}

// invalidate drops live quotes for the imported tickers so the new history
// takes precedence over quotes cached before the import.
func (s *Service) invalidate(txns []*models.Transaction) {
	if s.quotes == nil || len(txns) == 0 {
		return
	}
	tickers := make([]string, 0, len(txns))
	for _, t := range txns {
		tickers = append(tickers, t.Ticker)
	}
	s.quotes.Invalidate(tickers...)
}

func (s *Service) buildTransactions(userID string, rows []row) []*models.Transaction {
	txns := make([]*models.Transaction, 0, len(rows))
	for _, rw := range rows {
		t := &models.Transaction{
			UserID:    userID,
			Channel:   rw.channel,
			StockName: rw.stockName,
			Ticker:    rw.ticker,
			Sector:    rw.sector,
			Quantity:  rw.quantity,
			Type:      rw.txType,
			Date:      rw.date,
			Amount:    rw.amount,
		}
		if rw.price != nil {
			t.Price = rw.price
			t.PriceStatus = models.PriceRecorded
			if t.Amount == nil {
				amount := rw.price.Mul(rw.quantity)
				t.Amount = &amount
			}
		}
		txns = append(txns, t)
	}
	return txns
}

// fillPrices resolves every unpriced transaction at its trade date in one batch.
func (s *Service) fillPrices(ctx context.Context, userID string, txns []*models.Transaction, result *models.ImportResult) {
	var (
		pending  []*models.Transaction
		requests []models.PriceRequest
	)
	for _, t := range txns {
		if t.HasPrice() {
			result.Recorded++
			continue
		}
		req, err := models.HistoricalRequest(t.Ticker, t.Date)
		if err != nil {
			t.ApplyQuote(nil)
			result.Unresolved++
			continue
		}
		pending = append(pending, t)
		requests = append(requests, req)
	}
	if len(requests) == 0 {
		return
	}

	quotes := s.batch.ResolveBatch(ctx, requests, userID, s.opts.Budget)
	for i, t := range pending {
		q := quotes[requests[i]]
		t.ApplyQuote(q)
		if q == nil {
			result.Unresolved++
		} else {
			result.Resolved++
		}
	}
}

// ImportInbox imports every CSV in the inbox directory in name order and
// moves imported and duplicate files to the archive. Files that fail to
// parse stay in the inbox.
func (s *Service) ImportInbox(ctx context.Context, userID string) ([]*models.ImportResult, error) {
	if s.opts.InboxDir == "" {
		return nil, fmt.Errorf("inbox directory is not configured")
	}
	if err := os.MkdirAll(s.opts.InboxDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create inbox: %w", err)
	}

	entries, err := os.ReadDir(s.opts.InboxDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var results []*models.ImportResult
	for _, name := range names {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		res, err := s.importPath(ctx, userID, filepath.Join(s.opts.InboxDir, name))
		switch {
		case err == nil, errors.Is(err, interfaces.ErrDuplicateFile):
			if err != nil {
				s.logger.Info().Str("file", name).Msg("File already imported, archiving")
			}
			if mvErr := s.archive(name); mvErr != nil {
				s.logger.Warn().Err(mvErr).Str("file", name).Msg("Failed to archive file")
			}
			results = append(results, res)
		default:
			s.logger.Warn().Err(err).Str("file", name).Msg("Inbox import failed")
		}
	}
	return results, nil
}

func (s *Service) importPath(ctx context.Context, userID, path string) (*models.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return s.Import(ctx, userID, filepath.Base(path), f)
}

// archive moves name from the inbox to the archive directory, prefixing a
// timestamp when the target already exists.
func (s *Service) archive(name string) error {
	if s.opts.ArchiveDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.opts.ArchiveDir, 0755); err != nil {
		return err
	}
	target := filepath.Join(s.opts.ArchiveDir, name)
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(s.opts.ArchiveDir, fmt.Sprintf("%s_%s", s.now().Format("20060102150405"), name))
	}
	return os.Rename(filepath.Join(s.opts.InboxDir, name), target)
}
