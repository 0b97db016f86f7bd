package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

const fileColumns = `id, user_id, filename, original_filename, file_hash, channel, file_size, row_count, status, uploaded_at`

// FileStore implements interfaces.FileStore on investment_files.
type FileStore struct {
	db     *sql.DB
	logger *common.Logger
}

// SaveFile inserts file, assigning an id when it has none.
func (s *FileStore) SaveFile(ctx context.Context, file *models.InvestmentFile) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO investment_files (`+fileColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.ID, file.UserID, file.Filename, file.OriginalFilename, file.FileHash, file.Channel,
		file.FileSize, file.RowCount, file.Status, formatTime(file.UploadedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: investment_files.file_hash") {
			return fmt.Errorf("%s: %w", file.OriginalFilename, interfaces.ErrDuplicateFile)
		}
		return fmt.Errorf("failed to save file %s: %w", file.OriginalFilename, err)
	}
	return nil
}

func (s *FileStore) GetFileByHash(ctx context.Context, hash string) (*models.InvestmentFile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM investment_files WHERE file_hash = ?", hash)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	return f, err
}

func (s *FileStore) ListFiles(ctx context.Context, userID string) ([]*models.InvestmentFile, error) {
	query := "SELECT " + fileColumns + " FROM investment_files"
	var args []any
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY uploaded_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*models.InvestmentFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *FileStore) DeleteFile(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM investment_files WHERE file_hash = ?", hash); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", hash, err)
	}
	return nil
}

func scanFile(row scanner) (*models.InvestmentFile, error) {
	var (
		f          models.InvestmentFile
		uploadedAt string
	)
	err := row.Scan(&f.ID, &f.UserID, &f.Filename, &f.OriginalFilename, &f.FileHash, &f.Channel,
		&f.FileSize, &f.RowCount, &f.Status, &uploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}
	f.UploadedAt = parseTime(uploadedAt)
	return &f, nil
}

var _ interfaces.FileStore = (*FileStore)(nil)
