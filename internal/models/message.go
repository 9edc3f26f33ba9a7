package models

import "time"

// Message is a direct message between two users. Content is stored
// AES-GCM-encrypted and decrypted on read.
type Message struct {
	ID         string    `json:"-"`
	SenderID   int       `json:"-"`
	ReceiverID int       `json:"-"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"-"`
	Timestamp  time.Time `json:"-"`
}

// InboxMessage is the wire shape of a received message.
type InboxMessage struct {
	From      string `json:"from"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}
