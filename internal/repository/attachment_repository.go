package repository

import (
	"context"
	"database/sql"

	"github.com/courierchat/server/internal/model"
)

// Limits applied to a batch of uploaded attachments. Violations are
// reported back to the sender, never rejected wholesale: the message
// still goes out with whatever survived the filter.
const (
	MaxAttachments     = 10
	MaxAttachmentBytes = 8 * 1024 * 1024
)

// AttachmentUpload is a blob as received from the transport layer,
// before it is persisted.
type AttachmentUpload struct {
	FileName string
	MimeType string
	Data     []byte
}

// UploadReport records which limits a batch ran into.
type UploadReport struct {
	TooManyAttachments bool `json:"too_many_attachments,omitempty"`
	AttachmentTooLarge bool `json:"attachment_too_large,omitempty"`
}

// FilterUploads applies the batch limits: anything past the first
// MaxAttachments items is cut, and items over MaxAttachmentBytes are
// dropped from the batch. Relative order of the survivors is preserved.
func FilterUploads(uploads []AttachmentUpload) ([]AttachmentUpload, UploadReport) {
	var report UploadReport
	if len(uploads) > MaxAttachments {
		uploads = uploads[:MaxAttachments]
		report.TooManyAttachments = true
	}
	kept := make([]AttachmentUpload, 0, len(uploads))
	for _, u := range uploads {
		if len(u.Data) > MaxAttachmentBytes {
			report.AttachmentTooLarge = true
			continue
		}
		kept = append(kept, u)
	}
	return kept, report
}

// AttachmentRepo provides persistence for the 'attachments' table and
// its link table to messages.
type AttachmentRepo struct{ DB *sql.DB }

func NewAttachmentRepo(db *sql.DB) *AttachmentRepo { return &AttachmentRepo{DB: db} }

// StoreManyTx inserts the already-filtered uploads inside the caller's
// transaction, stamping every row with the same two-identity access
// list. IDs come back in the same order as the input.
func (r *AttachmentRepo) StoreManyTx(ctx context.Context, tx *sql.Tx, uploads []AttachmentUpload, userA, userB uint64) ([]uint64, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	ids := make([]uint64, 0, len(uploads))
	for _, u := range uploads {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO attachments (file_name, mime_type, data, allowed_user_a, allowed_user_b) VALUES (?,?,?,?,?)",
			u.FileName, u.MimeType, u.Data, userA, userB)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint64(id))
	}
	return ids, nil
}

// Fetch loads a single attachment with its data and access list.
func (r *AttachmentRepo) Fetch(ctx context.Context, id uint64) (model.Attachment, error) {
	var a model.Attachment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, file_name, mime_type, data, allowed_user_a, allowed_user_b, created_at FROM attachments WHERE id=? LIMIT 1",
		id).Scan(&a.ID, &a.FileName, &a.MimeType, &a.Data, &a.AllowedUserA, &a.AllowedUserB, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Attachment{}, ErrAttachmentNotFound
	}
	if err != nil {
		return model.Attachment{}, err
	}
	return a, nil
}

// Authorize reports whether a user may fetch an attachment. The check
// is a plain membership test on the stored pair.
func (r *AttachmentRepo) Authorize(a model.Attachment, userID uint64) bool {
	return a.AllowedUserA == userID || a.AllowedUserB == userID
}

// DeleteForMessageTx removes the attachments owned by a message along
// with their link rows, inside the caller's transaction. Message
// deletion cascades here so blobs never outlive the message that
// carried them.
func (r *AttachmentRepo) DeleteForMessageTx(ctx context.Context, tx *sql.Tx, messageID uint64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE a FROM attachments a JOIN message_attachments ma ON ma.attachment_id = a.id WHERE ma.message_id=?",
		messageID)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		"DELETE FROM message_attachments WHERE message_id=?", messageID)
	return err
}
