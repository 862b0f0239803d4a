package model

import "time"

// Attachment is a binary blob stored in the `attachments` table.
// Every attachment belongs to exactly one message and carries the
// two identities party to that message as its access-control list.
// Attachments are never mutated after creation.
//
// Fields:
//  ID           – primary key identifier.
//  FileName     – original file name supplied by the uploader.
//  MimeType     – MIME type reported at upload time.
//  Data         – raw bytes, at most 8 MiB.
//  AllowedUserA – first identity permitted to fetch the blob.
//  AllowedUserB – second identity permitted to fetch the blob.
//  CreatedAt    – timestamp of creation.
type Attachment struct {
	ID           uint64    // attachments.id
	FileName     string    // attachments.file_name
	MimeType     string    // attachments.mime_type
	Data         []byte    // attachments.data
	AllowedUserA uint64    // attachments.allowed_user_a
	AllowedUserB uint64    // attachments.allowed_user_b
	CreatedAt    time.Time // attachments.created_at
}
