package chat

import "errors"

// Domain-level errors for chat behaviors
var (
	ErrUnauthorized         = errors.New("chat: only HR/owner can start chat with regular users")
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrConversationExists   = errors.New("chat: conversation already exists for participant pair")
	ErrEmptyMessage         = errors.New("chat: empty message")
	ErrMissingIdentity      = errors.New("chat: missing participant identity")
)
