package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/courierchat/server/internal/middleware"
	"github.com/courierchat/server/internal/model"
	"github.com/courierchat/server/internal/queue"
	"github.com/courierchat/server/internal/repository"
	queue_publisher "github.com/courierchat/server/internal/service"
)

// MessageHandler serves the pair-scoped messaging operations: the
// recipient list, history pages, sends with attachments, edits,
// deletes and incremental sync. All methods assume SessionAuth has run.
// Send and Delete run their multi-table writes inside a transaction so
// a message row and its attachments commit or roll back together.
type MessageHandler struct {
	Messages    *repository.MessageRepo    // messages and the link table
	Attachments *repository.AttachmentRepo // attachment blobs and ACLs
	Users       *repository.UserRepo       // recipient existence checks
}

// NewMessageHandler constructs a MessageHandler. All dependencies must
// be non-nil.
func NewMessageHandler(m *repository.MessageRepo, a *repository.AttachmentRepo, u *repository.UserRepo) *MessageHandler {
	if m == nil || a == nil || u == nil {
		panic("nil repository passed to NewMessageHandler")
	}
	return &MessageHandler{Messages: m, Attachments: a, Users: u}
}

// ----- DTOs -----

type editReq struct {
	MessageID  uint64 `json:"message_id"`
	NewContent string `json:"new_content"`
}
type syncReq struct {
	Timestamp int64 `json:"timestamp"`
}

// messagePart is the wire shape of a stored message.
type messagePart struct {
	ID          uint64   `json:"id"`
	SenderID    uint64   `json:"sender_id"`
	RecipientID uint64   `json:"recipient_id"`
	Content     string   `json:"content"`
	Attachments []uint64 `json:"attachments"`
	SentAt      int64    `json:"sent_at"`
}

// syncPart is a messagePart annotated relative to the requester.
type syncPart struct {
	messagePart
	SentByMe bool `json:"sent_by_me"`
}

func toMessagePart(m model.Message, attachments []uint64) messagePart {
	if attachments == nil {
		attachments = []uint64{}
	}
	return messagePart{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		Attachments: attachments,
		SentAt:      m.SentAt,
	}
}

// Recipients handles GET /v1/recipients: the distinct counterparts the
// user has exchanged messages with.
func (h *MessageHandler) Recipients(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	recipients, err := h.Messages.Recipients(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if recipients == nil {
		recipients = []repository.RecipientRow{}
	}
	return c.JSON(http.StatusOK, recipients)
}

// List handles GET /v1/messages/:recipientId/:page: one newest-first
// page of the history with the counterpart. Pages past the end return
// an empty list.
func (h *MessageHandler) List(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	counterpart, err := strconv.ParseUint(c.Param("recipientId"), 10, 64)
	if err != nil || counterpart == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipient id"})
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page"})
	}

	ctx := c.Request().Context()
	messages, err := h.Messages.Page(ctx, uid, counterpart, page)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	parts, err := h.withAttachments(ctx, messages)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, parts)
}

// Send handles POST /v1/messages/:recipientId (multipart). The text
// lives in the "message" field, up to ten files in "attachments" parts.
// Oversized or surplus attachments are dropped and reported; the
// message itself still goes out. The message row and its surviving
// attachments commit in one transaction.
func (h *MessageHandler) Send(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	counterpart, err := strconv.ParseUint(c.Param("recipientId"), 10, 64)
	if err != nil || counterpart == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipient id"})
	}
	if counterpart == uid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "self_message"})
	}

	content := strings.TrimSpace(c.FormValue("message"))
	if content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_message"})
	}

	ctx := c.Request().Context()
	if _, err := h.Users.GetByID(ctx, counterpart); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipient"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	uploads, err := readUploads(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed attachments"})
	}
	kept, report := repository.FilterUploads(uploads)

	tx, err := h.Messages.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	msg, err := h.Messages.CreateTx(ctx, tx, uid, counterpart, content)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store message failed"})
	}
	ids, err := h.Attachments.StoreManyTx(ctx, tx, kept, uid, counterpart)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store attachments failed"})
	}
	if err := h.Messages.LinkAttachmentsTx(ctx, tx, msg.ID, ids); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "link attachments failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	// Broker failures only cost the event, never the request.
	go func(ev queue.MessageSentEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue_publisher.PublishMessageSent(ctx, ev); err != nil {
			log.Printf("message event publish failed: %v", err)
		}
	}(queue.MessageSentEvent{
		MessageID:       msg.ID,
		SenderID:        msg.SenderID,
		RecipientID:     msg.RecipientID,
		AttachmentCount: len(ids),
		SentAt:          msg.SentAt,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"message": toMessagePart(msg, ids),
		"report":  report,
	})
}

// Edit handles POST /v1/messages/:recipientId/edit. Only the original
// sender may edit, and only the content changes.
func (h *MessageHandler) Edit(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req editReq
	if err := c.Bind(&req); err != nil || req.MessageID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "message_id required"})
	}
	if strings.TrimSpace(req.NewContent) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_message"})
	}

	err = h.Messages.Edit(c.Request().Context(), uid, req.MessageID, req.NewContent)
	switch {
	case errors.Is(err, repository.ErrMessageNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "message_not_found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "edit failed"})
	}
	return c.JSON(http.StatusOK, true)
}

// Delete handles POST /v1/messages/:id/delete. Only the original sender
// may delete; the message's attachments are removed in the same
// transaction so blobs never outlive their message.
func (h *MessageHandler) Delete(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	messageID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || messageID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid message id"})
	}

	ctx := c.Request().Context()
	tx, err := h.Messages.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	senderID, err := h.Messages.SenderTx(ctx, tx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "message_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if senderID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Attachments.DeleteForMessageTx(ctx, tx, messageID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete attachments failed"})
	}
	if err := h.Messages.DeleteTx(ctx, tx, messageID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	return c.JSON(http.StatusOK, true)
}

// Sync handles POST /v1/sync/:recipientId. It returns messages between
// the pair strictly newer than the client's cursor, oldest first and
// capped per call; the client re-polls with the newest timestamp it has
// seen until the batch comes back short. Each item is annotated with
// whether the requester authored it.
func (h *MessageHandler) Sync(c echo.Context) error {
	uid, err := middleware.UserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	counterpart, err := strconv.ParseUint(c.Param("recipientId"), 10, 64)
	if err != nil || counterpart == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recipient id"})
	}
	var req syncReq
	if err := c.Bind(&req); err != nil || req.Timestamp < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "proper timestamp must be provided"})
	}

	ctx := c.Request().Context()
	messages, err := h.Messages.SyncSince(ctx, uid, counterpart, req.Timestamp)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	parts, err := h.withAttachments(ctx, messages)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]syncPart, 0, len(parts))
	for i, p := range parts {
		out = append(out, syncPart{messagePart: p, SentByMe: messages[i].SenderID == uid})
	}
	return c.JSON(http.StatusOK, out)
}

// withAttachments resolves the ordered attachment references for each
// message in one query and builds the wire parts.
func (h *MessageHandler) withAttachments(ctx context.Context, messages []model.Message) ([]messagePart, error) {
	ids := make([]uint64, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	attachments, err := h.Messages.AttachmentIDsForMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	parts := make([]messagePart, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, toMessagePart(m, attachments[m.ID]))
	}
	return parts, nil
}

// readUploads collects the "attachments" parts of a multipart request.
// Parts under any other field name are ignored. A request without a
// multipart body simply has no attachments.
func readUploads(c echo.Context) ([]repository.AttachmentUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	files := form.File["attachments"]
	uploads := make([]repository.AttachmentUpload, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(src)
		_ = src.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, repository.AttachmentUpload{
			FileName: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return uploads, nil
}
