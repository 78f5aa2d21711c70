package domain

import "time"

// SenderType indicates who authored a message.
type SenderType string

const (
	SenderTypeVisitor SenderType = "visitor"
	SenderTypeStaff   SenderType = "staff"
)

// Message is one immutable entry of a ticket thread.
type Message struct {
	ID         string
	Sender     string
	SenderType SenderType
	Body       string
	CreatedAt  time.Time
}

// Sender describes the author of a message about to be appended.
type Sender struct {
	Name string
	Type SenderType
}

// VisitorSender builds the sender for an anonymous widget visitor.
func VisitorSender(name string) Sender {
	return Sender{Name: name, Type: SenderTypeVisitor}
}

// StaffSender builds the sender for an authenticated identity.
func StaffSender(identity *Identity) Sender {
	return Sender{Name: identity.Name, Type: SenderTypeStaff}
}
