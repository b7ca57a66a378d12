// Package chattest provides in-memory doubles for the chat ports.
package chattest

import (
	"context"
	"fmt"
	"sync"

	chat "jobboard/internal/pkg/chat/application/domain"
	repository "jobboard/internal/pkg/chat/persistence/repository/port"
	identity "jobboard/internal/pkg/identity/application/domain"
)

// MemoryRepository is a ChatRepository backed by maps. Like the real
// stores it keeps at most one conversation per unordered pair.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*chat.Conversation
	byPair map[[2]string]string
	nextID int

	FailFind   error
	FailCreate error
	FailAppend error

	// BeforeCreate runs at the start of CreateConversation, outside the
	// lock, so a test can slip a competing create in first.
	BeforeCreate func()

	Creates int
	Appends int
}

var _ repository.ChatRepository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*chat.Conversation),
		byPair: make(map[[2]string]string),
	}
}

func (r *MemoryRepository) FindConversation(_ context.Context, a, b string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailFind != nil {
		return nil, r.FailFind
	}
	id, ok := r.byPair[pair(a, b)]
	if !ok {
		return nil, nil
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) FindConversationByID(_ context.Context, id string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailFind != nil {
		return nil, r.FailFind
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) CreateConversation(_ context.Context, senderID, receiverID string, first chat.Message) (*chat.Conversation, error) {
	r.mu.Lock()
	hook := r.BeforeCreate
	r.BeforeCreate = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return nil, r.FailCreate
	}
	key := pair(senderID, receiverID)
	if _, ok := r.byPair[key]; ok {
		return nil, chat.ErrConversationExists
	}
	r.nextID++
	c := &chat.Conversation{
		ID:         fmt.Sprintf("conv-%d", r.nextID),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Messages:   []chat.Message{first},
		CreatedAt:  first.CreatedAt,
		UpdatedAt:  first.CreatedAt,
	}
	r.byID[c.ID] = c
	r.byPair[key] = c.ID
	r.Creates++
	return clone(c), nil
}

func (r *MemoryRepository) AppendMessage(_ context.Context, conversationID string, m chat.Message) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAppend != nil {
		return nil, r.FailAppend
	}
	c, ok := r.byID[conversationID]
	if !ok {
		return nil, chat.ErrConversationNotFound
	}
	c.Messages = append(c.Messages, m)
	if m.CreatedAt.After(c.UpdatedAt) {
		c.UpdatedAt = m.CreatedAt
	}
	r.Appends++
	return clone(c), nil
}

// Conversations returns a snapshot of every stored conversation.
func (r *MemoryRepository) Conversations() []*chat.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*chat.Conversation, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, clone(c))
	}
	return out
}

func pair(a, b string) [2]string {
	low, high := chat.PairKey(a, b)
	return [2]string{low, high}
}

func clone(c *chat.Conversation) *chat.Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Messages = append([]chat.Message(nil), c.Messages...)
	return &cp
}

// StaticDirectory resolves roles from a fixed map; unknown users are Regular.
type StaticDirectory struct {
	mu    sync.Mutex
	Roles map[string]identity.Role
	Err   error
	Calls int
}

func NewStaticDirectory(roles map[string]identity.Role) *StaticDirectory {
	if roles == nil {
		roles = make(map[string]identity.Role)
	}
	return &StaticDirectory{Roles: roles}
}

func (d *StaticDirectory) Role(_ context.Context, userID string) (identity.Role, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	if d.Err != nil {
		return identity.RoleRegular, d.Err
	}
	return d.Roles[userID], nil
}

// Set changes a user's role.
func (d *StaticDirectory) Set(userID string, role identity.Role) {
	d.mu.Lock()
	d.Roles[userID] = role
	d.mu.Unlock()
}

// Notification is one recorded Notify call.
type Notification struct {
	Event      chat.NewMessageEvent
	Recipients []string
}

// RecordingNotifier records every Notify call.
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification
}

func (n *RecordingNotifier) Notify(_ context.Context, ev chat.NewMessageEvent, recipients ...string) {
	n.mu.Lock()
	n.calls = append(n.calls, Notification{Event: ev, Recipients: append([]string(nil), recipients...)})
	n.mu.Unlock()
}

func (n *RecordingNotifier) Calls() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.calls...)
}
