// Package queue defines message payloads exchanged over the message broker.
package queue

// MessageSentEvent is published after a message has been durably
// written. It carries enough information for downstream consumers to
// log or trigger notifications without querying the primary database.
// Message text and attachment bytes stay out of the event on purpose.
type MessageSentEvent struct {
	MessageID       uint64 `json:"message_id"`
	SenderID        uint64 `json:"sender_id"`
	RecipientID     uint64 `json:"recipient_id"`
	AttachmentCount int    `json:"attachment_count"`
	SentAt          int64  `json:"sent_at"`
}
