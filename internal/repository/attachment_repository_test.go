package repository

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/courierchat/server/internal/model"
)

func upload(name string, size int) AttachmentUpload {
	return AttachmentUpload{
		FileName: name,
		MimeType: "application/octet-stream",
		Data:     bytes.Repeat([]byte{0xAB}, size),
	}
}

func TestFilterUploads_CountCap(t *testing.T) {
	var uploads []AttachmentUpload
	for i := 0; i < 12; i++ {
		uploads = append(uploads, upload(fmt.Sprintf("f%02d.bin", i), 1024*1024))
	}

	kept, report := FilterUploads(uploads)
	if len(kept) != MaxAttachments {
		t.Fatalf("expected %d kept, got %d", MaxAttachments, len(kept))
	}
	if !report.TooManyAttachments || report.AttachmentTooLarge {
		t.Fatalf("unexpected report: %+v", report)
	}
	// The first ten survive, in order; the tail is cut.
	if kept[0].FileName != "f00.bin" || kept[9].FileName != "f09.bin" {
		t.Fatalf("order not preserved: %s .. %s", kept[0].FileName, kept[9].FileName)
	}
}

func TestFilterUploads_SizeCap(t *testing.T) {
	uploads := []AttachmentUpload{
		upload("ok.bin", 1024),
		upload("huge.bin", MaxAttachmentBytes+1),
		upload("ok2.bin", MaxAttachmentBytes),
	}

	kept, report := FilterUploads(uploads)
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if kept[0].FileName != "ok.bin" || kept[1].FileName != "ok2.bin" {
		t.Fatalf("order not preserved: %+v", kept)
	}
	if report.AttachmentTooLarge != true || report.TooManyAttachments {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestFilterUploads_Clean(t *testing.T) {
	kept, report := FilterUploads([]AttachmentUpload{upload("a.png", 10)})
	if len(kept) != 1 || report.TooManyAttachments || report.AttachmentTooLarge {
		t.Fatalf("clean batch must pass untouched: kept=%d report=%+v", len(kept), report)
	}
}

func TestStoreManyTx_PreservesOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	repo := NewAttachmentRepo(db)

	first := upload("a.png", 8)
	second := upload("b.png", 8)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO attachments`).
		WithArgs("a.png", "application/octet-stream", first.Data, uint64(1), uint64(2)).
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec(`INSERT INTO attachments`).
		WithArgs("b.png", "application/octet-stream", second.Data, uint64(1), uint64(2)).
		WillReturnResult(sqlmock.NewResult(101, 1))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ids, err := repo.StoreManyTx(context.Background(), tx, []AttachmentUpload{first, second}, 1, 2)
	if err != nil {
		t.Fatalf("StoreManyTx error: %v", err)
	}
	if len(ids) != 2 || ids[0] != 100 || ids[1] != 101 {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStoreManyTx_EmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	repo := NewAttachmentRepo(db)

	mock.ExpectBegin()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	ids, err := repo.StoreManyTx(context.Background(), tx, nil, 1, 2)
	if err != nil || ids != nil {
		t.Fatalf("expected no-op, got (%v, %v)", ids, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database access: %v", err)
	}
}

func TestFetch_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	repo := NewAttachmentRepo(db)

	mock.ExpectQuery(`SELECT id, file_name, mime_type, data, allowed_user_a, allowed_user_b, created_at FROM attachments`).
		WithArgs(uint64(404)).
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.Fetch(context.Background(), 404); err != ErrAttachmentNotFound {
		t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
	}
}

func TestFetch_Found(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	repo := NewAttachmentRepo(db)

	data := []byte{1, 2, 3}
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, file_name, mime_type, data, allowed_user_a, allowed_user_b, created_at FROM attachments`).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "file_name", "mime_type", "data", "allowed_user_a", "allowed_user_b", "created_at"}).
			AddRow(7, "photo.jpg", "image/jpeg", data, 1, 2, now))

	a, err := repo.Fetch(context.Background(), 7)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if a.FileName != "photo.jpg" || a.MimeType != "image/jpeg" || !bytes.Equal(a.Data, data) {
		t.Fatalf("unexpected attachment: %+v", a)
	}
	if a.AllowedUserA != 1 || a.AllowedUserB != 2 {
		t.Fatalf("access list scanned wrong: %+v", a)
	}
}

func TestAuthorize(t *testing.T) {
	repo := &AttachmentRepo{}
	a := model.Attachment{AllowedUserA: 1, AllowedUserB: 2}

	if !repo.Authorize(a, 1) || !repo.Authorize(a, 2) {
		t.Fatalf("both parties must pass")
	}
	if repo.Authorize(a, 3) {
		t.Fatalf("third parties must be denied")
	}
}

func TestDeleteForMessageTx_CascadesBothTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()
	repo := NewAttachmentRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE a FROM attachments a JOIN message_attachments ma`).
		WithArgs(uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM message_attachments WHERE message_id=\?`).
		WithArgs(uint64(10)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := repo.DeleteForMessageTx(context.Background(), tx, 10); err != nil {
		t.Fatalf("DeleteForMessageTx error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
