package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

// FileStore implements interfaces.FileStore using SurrealDB. Records are
// keyed by content hash so a second import of the same file is detectable.
type FileStore struct {
	db     *surrealdb.DB
	logger *common.Logger
	mu     sync.Mutex
}

// fileRecord is the SurrealDB record shape for investment_files.
type fileRecord struct {
	FileID           string    `json:"file_id"`
	UserID           string    `json:"user_id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FileHash         string    `json:"file_hash"`
	Channel          string    `json:"channel"`
	FileSize         int64     `json:"file_size"`
	RowCount         int       `json:"row_count"`
	Status           string    `json:"status"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// NewFileStore creates a new FileStore.
func NewFileStore(db *surrealdb.DB, logger *common.Logger) *FileStore {
	return &FileStore{db: db, logger: logger}
}

func (r fileRecord) toModel() *models.InvestmentFile {
	return &models.InvestmentFile{
		ID:               r.FileID,
		UserID:           r.UserID,
		Filename:         r.Filename,
		OriginalFilename: r.OriginalFilename,
		FileHash:         r.FileHash,
		Channel:          r.Channel,
		FileSize:         r.FileSize,
		RowCount:         r.RowCount,
		Status:           r.Status,
		UploadedAt:       r.UploadedAt,
	}
}

func (s *FileStore) SaveFile(ctx context.Context, file *models.InvestmentFile) error {
	if file.FileHash == "" {
		return fmt.Errorf("file hash is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.GetFileByHash(ctx, file.FileHash)
	if err == nil && existing != nil {
		return fmt.Errorf("%s: %w", file.OriginalFilename, interfaces.ErrDuplicateFile)
	}
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return err
	}

	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	sql := "CREATE $rid CONTENT $record"
	vars := map[string]any{
		"rid": surrealmodels.NewRecordID(tableFiles, file.FileHash),
		"record": fileRecord{
			FileID:           file.ID,
			UserID:           file.UserID,
			Filename:         file.Filename,
			OriginalFilename: file.OriginalFilename,
			FileHash:         file.FileHash,
			Channel:          file.Channel,
			FileSize:         file.FileSize,
			RowCount:         file.RowCount,
			Status:           file.Status,
			UploadedAt:       file.UploadedAt,
		},
	}
	if _, err := surrealdb.Query[[]fileRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save file %s: %w", file.OriginalFilename, err)
	}
	return nil
}

func (s *FileStore) GetFileByHash(ctx context.Context, hash string) (*models.InvestmentFile, error) {
	sql := "SELECT * FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID(tableFiles, hash)}
	results, err := surrealdb.Query[[]fileRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to get file by hash: %w", err)
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return (*results)[0].Result[0].toModel(), nil
}

func (s *FileStore) ListFiles(ctx context.Context, userID string) ([]*models.InvestmentFile, error) {
	sql := "SELECT * FROM investment_files"
	vars := map[string]any{}
	if userID != "" {
		sql += " WHERE user_id = $user_id"
		vars["user_id"] = userID
	}
	sql += " ORDER BY uploaded_at DESC"

	results, err := surrealdb.Query[[]fileRecord](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var files []*models.InvestmentFile
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			files = append(files, r.toModel())
		}
	}
	return files, nil
}

func (s *FileStore) DeleteFile(ctx context.Context, hash string) error {
	if _, err := surrealdb.Delete[fileRecord](ctx, s.db, surrealmodels.NewRecordID(tableFiles, hash)); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", hash, err)
	}
	return nil
}

// Compile-time check
var _ interfaces.FileStore = (*FileStore)(nil)
