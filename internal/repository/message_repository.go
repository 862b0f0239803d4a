package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/courierchat/server/internal/model"
)

const (
	// PageSize is the fixed number of messages per history page.
	PageSize = 10
	// SyncBatchSize caps how many messages a single sync call returns.
	// Clients drain larger backlogs by re-polling with the last seen
	// timestamp; the cap is flow control, not an error.
	SyncBatchSize = 10
	// MaxContentChars is the content limit. Longer messages are
	// truncated silently, not rejected.
	MaxContentChars = 2000
)

// MessageRepo provides persistence for the 'messages' table and the
// message_attachments link table.
type MessageRepo struct{ db *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// DB exposes the underlying handle for handler-driven transactions
// spanning messages and attachments.
func (r *MessageRepo) DB() *sql.DB { return r.db }

// TruncateContent cuts content to MaxContentChars characters. The limit
// counts runes, not bytes, so multi-byte text is never split mid-rune.
func TruncateContent(content string) string {
	runes := []rune(content)
	if len(runes) <= MaxContentChars {
		return content
	}
	return string(runes[:MaxContentChars])
}

const pairCond = "((sender_id=? AND recipient_id=?) OR (sender_id=? AND recipient_id=?))"

// CreateTx inserts a message row inside the caller's transaction and
// returns the stored record. The timestamp is assigned here and kept
// strictly increasing per pair: the row lock taken by the MAX query
// serializes concurrent sends between the same two users, and the new
// timestamp is bumped past the previous one when the wall clock has not
// moved. Sync cursors rely on this to be strict-greater without gaps.
func (r *MessageRepo) CreateTx(ctx context.Context, tx *sql.Tx, senderID, recipientID uint64, content string) (model.Message, error) {
	content = TruncateContent(content)

	var last int64
	err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sent_at),0) FROM messages WHERE "+pairCond+" FOR UPDATE",
		senderID, recipientID, recipientID, senderID).Scan(&last)
	if err != nil {
		return model.Message{}, err
	}
	sentAt := time.Now().UTC().UnixMilli()
	if sentAt <= last {
		sentAt = last + 1
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO messages (sender_id, recipient_id, content, sent_at) VALUES (?,?,?,?)",
		senderID, recipientID, content, sentAt)
	if err != nil {
		return model.Message{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, err
	}
	return model.Message{
		ID:          uint64(id),
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		SentAt:      sentAt,
	}, nil
}

// LinkAttachmentsTx associates stored attachments with a message,
// preserving their upload order.
func (r *MessageRepo) LinkAttachmentsTx(ctx context.Context, tx *sql.Tx, messageID uint64, attachmentIDs []uint64) error {
	if len(attachmentIDs) == 0 {
		return nil
	}
	query := "INSERT INTO message_attachments (message_id, attachment_id, position) VALUES "
	args := make([]any, 0, len(attachmentIDs)*3)
	for i, aid := range attachmentIDs {
		if i > 0 {
			query += ","
		}
		query += "(?,?,?)"
		args = append(args, messageID, aid, i)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Page returns one page of the history between two users, newest first.
// Pages are zero-based and PageSize long; pages past the end come back
// empty rather than failing.
func (r *MessageRepo) Page(ctx context.Context, userA, userB uint64, page int) ([]model.Message, error) {
	if page < 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, sender_id, recipient_id, content, sent_at, is_deleted FROM messages WHERE "+pairCond+
			" ORDER BY sent_at DESC, id DESC LIMIT ? OFFSET ?",
		userA, userB, userB, userA, PageSize, page*PageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// SyncSince returns messages between the pair with a timestamp strictly
// greater than since, oldest first, capped at SyncBatchSize.
func (r *MessageRepo) SyncSince(ctx context.Context, userA, userB uint64, since int64) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, sender_id, recipient_id, content, sent_at, is_deleted FROM messages WHERE "+pairCond+
			" AND sent_at > ? ORDER BY sent_at ASC, id ASC LIMIT ?",
		userA, userB, userB, userA, since, SyncBatchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// Edit replaces a message's content. Only the original sender may edit,
// and only the content column is ever touched.
func (r *MessageRepo) Edit(ctx context.Context, requesterID, messageID uint64, newContent string) error {
	senderID, err := r.sender(ctx, messageID)
	if err != nil {
		return err
	}
	if senderID != requesterID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE messages SET content=? WHERE id=?",
		TruncateContent(newContent), messageID)
	return err
}

// SenderTx reads a message's author inside a transaction, locking the
// row for the duration. Used by the delete path to check ownership
// before cascading.
func (r *MessageRepo) SenderTx(ctx context.Context, tx *sql.Tx, messageID uint64) (uint64, error) {
	var senderID uint64
	err := tx.QueryRowContext(ctx,
		"SELECT sender_id FROM messages WHERE id=? FOR UPDATE", messageID).Scan(&senderID)
	if err == sql.ErrNoRows {
		return 0, ErrMessageNotFound
	}
	return senderID, err
}

// DeleteTx removes the message row inside the caller's transaction. The
// caller is responsible for the ownership check and for cascading to
// attachments first.
func (r *MessageRepo) DeleteTx(ctx context.Context, tx *sql.Tx, messageID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE id=?", messageID)
	return err
}

// RecipientRow is one entry of a user's conversation list: the
// counterpart's identity joined with the profile fields clients render.
type RecipientRow struct {
	ID          uint64  `json:"id"`
	Login       string  `json:"nickname"`
	DisplayName *string `json:"display_name"`
	Avatar      *string `json:"avatar"`
}

// Recipients derives the distinct set of counterparts a user has
// exchanged messages with. Recomputed on each call; uniqueness is the
// only order guarantee.
func (r *MessageRepo) Recipients(ctx context.Context, userID uint64) ([]RecipientRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.login, u.display_name, u.avatar
		FROM users u
		JOIN (
			SELECT DISTINCT CASE WHEN m.sender_id = ? THEN m.recipient_id ELSE m.sender_id END AS other_id
			FROM messages m
			WHERE m.sender_id = ? OR m.recipient_id = ?
		) counterparts ON counterparts.other_id = u.id`,
		userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecipientRow
	for rows.Next() {
		var (
			rec         RecipientRow
			displayName sql.NullString
			avatar      sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Login, &displayName, &avatar); err != nil {
			return nil, err
		}
		if displayName.Valid {
			rec.DisplayName = &displayName.String
		}
		if avatar.Valid {
			rec.Avatar = &avatar.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AttachmentIDsForMessages loads the ordered attachment references for a
// set of messages in one query.
func (r *MessageRepo) AttachmentIDsForMessages(ctx context.Context, messageIDs []uint64) (map[uint64][]uint64, error) {
	if len(messageIDs) == 0 {
		return map[uint64][]uint64{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(messageIDs)), ",")
	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT message_id, attachment_id FROM message_attachments WHERE message_id IN ("+placeholders+") ORDER BY message_id, position",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64][]uint64, len(messageIDs))
	for rows.Next() {
		var mid, aid uint64
		if err := rows.Scan(&mid, &aid); err != nil {
			return nil, err
		}
		out[mid] = append(out[mid], aid)
	}
	return out, rows.Err()
}

func (r *MessageRepo) sender(ctx context.Context, messageID uint64) (uint64, error) {
	var senderID uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT sender_id FROM messages WHERE id=? LIMIT 1", messageID).Scan(&senderID)
	if err == sql.ErrNoRows {
		return 0, ErrMessageNotFound
	}
	return senderID, err
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.SentAt, &m.IsDeleted); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
