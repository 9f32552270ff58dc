// Package domain contains core concepts of the chat gateway.
// This file defines the Envelope value and its construction rules.
// Envelopes are immutable and validated by the domain.
package domain

import (
	"time"

	"chat-gateway/errors"
)

// Kind classifies an envelope. JOIN, LEAVE and SYSTEM are synthesized by the
// gateway; clients may only originate CHAT and PRIVATE.
type Kind string

const (
	KindChat    Kind = "CHAT"
	KindJoin    Kind = "JOIN"
	KindLeave   Kind = "LEAVE"
	KindPrivate Kind = "PRIVATE"
	KindSystem  Kind = "SYSTEM"
)

// SystemSender is the synthetic sender of SYSTEM envelopes.
const SystemSender = "System"

// ClientOriginated reports whether clients are allowed to submit this kind
// themselves. Everything else is server-only.
func (k Kind) ClientOriginated() bool {
	return k == KindChat || k == KindPrivate
}

// Envelope represents an immutable chat event. Any field change goes through
// constructing a new envelope via one of the With* copies.
type Envelope struct {
	Kind      Kind
	Sender    string
	Content   string
	Timestamp time.Time
}

// NewEnvelope builds an envelope stamped with the current UTC time.
// Sender and content must be non-empty for CHAT, JOIN, LEAVE and PRIVATE;
// a SYSTEM envelope with an empty sender gets the synthetic "System" sender.
func NewEnvelope(kind Kind, sender, content string) (Envelope, error) {
	if kind == KindSystem && sender == "" {
		sender = SystemSender
	}
	if sender == "" {
		return Envelope{}, errors.ErrEmptySender
	}
	if content == "" {
		return Envelope{}, errors.ErrEmptyContent
	}
	return Envelope{
		Kind:      kind,
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}, nil
}

// WithKind returns a copy carrying the given kind.
func (e Envelope) WithKind(kind Kind) Envelope {
	e.Kind = kind
	return e
}

// WithTimestamp returns a copy carrying the given timestamp.
func (e Envelope) WithTimestamp(at time.Time) Envelope {
	e.Timestamp = at
	return e
}
