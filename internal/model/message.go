package model

// Message is a directed record between two users as stored in the
// `messages` table. Messages between a pair are totally ordered by
// SentAt, which the store assigns at insertion and keeps strictly
// increasing per pair so that sync cursors never skip or repeat a
// message.
//
// Fields:
//  ID          – primary key identifier.
//  SenderID    – author of the message.
//  RecipientID – counterpart the message was sent to.
//  Content     – text content, at most 2000 characters.
//  SentAt      – store-assigned Unix millisecond timestamp.
//  IsDeleted   – soft-delete marker kept for audit tooling; the
//                delete path removes rows outright, so live queries
//                never consult it.
type Message struct {
	ID          uint64 // messages.id
	SenderID    uint64 // messages.sender_id
	RecipientID uint64 // messages.recipient_id
	Content     string // messages.content
	SentAt      int64  // messages.sent_at (unix millis)
	IsDeleted   bool   // messages.is_deleted
}
