package models

import "time"

// Header is a single raw message header as it appeared on the wire.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AttachmentMeta describes an attachment without carrying its content.
// Attachment payloads are not stored by the ingestion pipeline.
type AttachmentMeta struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// RawMessage is the sealed byte buffer of one fetched message.
type RawMessage struct {
	SeqNum   uint32
	Provider string
	Body     []byte
}

// FetchedEmail is the structured form of one mailbox message. When parsing
// fails the record is kept with ParseFailed set and placeholder content so a
// single bad message never aborts a run.
type FetchedEmail struct {
	MessageID   string           `json:"message_id"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Subject     string           `json:"subject"`
	Date        time.Time        `json:"date"`
	TextBody    string           `json:"text_body"`
	HTMLBody    string           `json:"html_body"`
	Attachments []AttachmentMeta `json:"attachments,omitempty"`
	RawHeaders  []Header         `json:"raw_headers,omitempty"`
	Provider    string           `json:"provider"`
	ParseFailed bool             `json:"parse_failed"`
	ParseError  string           `json:"parse_error,omitempty"`
}

// ContactRecord is a roster entry supplied by the surrounding CRM.
type ContactRecord struct {
	ID        int64  `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`
	Email     string `json:"email" db:"email"`
	DisplayID string `json:"display_id" db:"display_id"`
}
