package surrealdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/models"
)

func TestFileStore_SaveAndGetByHash(t *testing.T) {
	db := testDB(t)
	store := NewFileStore(db, testLogger())
	ctx := context.Background()

	f := &models.InvestmentFile{
		UserID:           "alice",
		Filename:         "groww_holdings.csv",
		OriginalFilename: "groww_holdings.csv",
		FileHash:         "9f86d081884c7d65",
		Channel:          "groww",
		FileSize:         2048,
		RowCount:         20,
		Status:           models.FileStatusProcessed,
		UploadedAt:       time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	}
	if err := store.SaveFile(ctx, f); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	if f.ID == "" {
		t.Error("expected ID to be assigned")
	}

	got, err := store.GetFileByHash(ctx, "9f86d081884c7d65")
	if err != nil {
		t.Fatalf("GetFileByHash failed: %v", err)
	}
	if got.ID != f.ID {
		t.Errorf("expected id %s, got %s", f.ID, got.ID)
	}
	if got.Channel != "groww" || got.RowCount != 20 {
		t.Errorf("unexpected file record: %+v", got)
	}
}

func TestFileStore_DuplicateHash(t *testing.T) {
	db := testDB(t)
	store := NewFileStore(db, testLogger())
	ctx := context.Background()

	f := &models.InvestmentFile{UserID: "alice", OriginalFilename: "a.csv", FileHash: "abc", UploadedAt: time.Now()}
	if err := store.SaveFile(ctx, f); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	err := store.SaveFile(ctx, &models.InvestmentFile{UserID: "alice", OriginalFilename: "copy.csv", FileHash: "abc", UploadedAt: time.Now()})
	if !errors.Is(err, interfaces.ErrDuplicateFile) {
		t.Errorf("expected ErrDuplicateFile, got %v", err)
	}
}

func TestFileStore_ListFiles(t *testing.T) {
	db := testDB(t)
	store := NewFileStore(db, testLogger())
	ctx := context.Background()

	store.SaveFile(ctx, &models.InvestmentFile{UserID: "alice", Filename: "old.csv", FileHash: "h1", UploadedAt: day(2024, 1, 1)})
	store.SaveFile(ctx, &models.InvestmentFile{UserID: "alice", Filename: "new.csv", FileHash: "h2", UploadedAt: day(2024, 2, 1)})
	store.SaveFile(ctx, &models.InvestmentFile{UserID: "bob", Filename: "bob.csv", FileHash: "h3", UploadedAt: day(2024, 3, 1)})

	files, err := store.ListFiles(ctx, "alice")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files for alice, got %d", len(files))
	}
	if files[0].Filename != "new.csv" {
		t.Errorf("expected newest first, got %s", files[0].Filename)
	}

	_, err = store.GetFileByHash(ctx, "missing")
	if !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_DeleteFile(t *testing.T) {
	db := testDB(t)
	store := NewFileStore(db, testLogger())
	ctx := context.Background()

	if err := store.SaveFile(ctx, &models.InvestmentFile{UserID: "alice", OriginalFilename: "a.csv", FileHash: "abc", UploadedAt: time.Now()}); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	if err := store.DeleteFile(ctx, "abc"); err != nil {
		t.Fatalf("DeleteFile failed: %v", err)
	}
	if _, err := store.GetFileByHash(ctx, "abc"); !errors.Is(err, interfaces.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.SaveFile(ctx, &models.InvestmentFile{UserID: "alice", OriginalFilename: "a.csv", FileHash: "abc", UploadedAt: time.Now()}); err != nil {
		t.Errorf("expected hash to be free after delete, got %v", err)
	}
}
