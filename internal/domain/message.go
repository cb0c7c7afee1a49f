package domain

import "time"

// Sender identifies which side of the conversation wrote a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAdmin    Sender = "admin"
)

// Message is one entry in a case's conversation thread. Threads are
// append-only: messages are never edited, reordered or removed.
type Message struct {
	Sender     Sender    `bson:"sender" json:"sender"`
	SenderName string    `bson:"sender_name" json:"sender_name"`
	Body       string    `bson:"body" json:"body"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}
