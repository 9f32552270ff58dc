package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrUnknownSession = fmt.Errorf("unknown session")
	ErrAlreadyBound   = fmt.Errorf("session already bound to an identity")
	ErrInvalidKind    = fmt.Errorf("clients may not originate this envelope kind")
	ErrEmptySender    = fmt.Errorf("envelope sender is empty")
	ErrEmptyContent   = fmt.Errorf("envelope content is empty")
	ErrEmptyRecipient = fmt.Errorf("private message recipient is empty")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrUserNotFound   = fmt.Errorf("user not found")
	ErrEmailTaken     = fmt.Errorf("email already registered")
	ErrBadCredentials = fmt.Errorf("invalid email or password")
	ErrNotFound       = fmt.Errorf("record not found")
)
