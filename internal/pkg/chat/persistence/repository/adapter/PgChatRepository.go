package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	chat "jobboard/internal/pkg/chat/application/domain"
	repository "jobboard/internal/pkg/chat/persistence/repository/port"
)

type PgChatRepository struct {
	pool *pgxpool.Pool
}

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PgChatRepository) FindConversation(ctx context.Context, a, b string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	low, high := chat.PairKey(a, b)
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, sender_id, receiver_id, created_at, updated_at
		FROM chat.conversation
		WHERE LEAST(sender_id, receiver_id) = $1 AND GREATEST(sender_id, receiver_id) = $2
	`, low, high)
	return r.hydrate(ctx, r.pool, row)
}

func (r *PgChatRepository) FindConversationByID(ctx context.Context, id string) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT id::text, sender_id, receiver_id, created_at, updated_at
		FROM chat.conversation
		WHERE id = $1::uuid
	`, id)
	return r.hydrate(ctx, r.pool, row)
}

func (r *PgChatRepository) CreateConversation(ctx context.Context, senderID, receiverID string, first chat.Message) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c := chat.Conversation{
		SenderID:   senderID,
		ReceiverID: receiverID,
		CreatedAt:  first.CreatedAt,
		UpdatedAt:  first.CreatedAt,
	}
	// The pair index turns a concurrent duplicate into an empty RETURNING.
	err = tx.QueryRow(ctx, `
		INSERT INTO chat.conversation (sender_id, receiver_id, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT DO NOTHING
		RETURNING id::text
	`, senderID, receiverID, first.CreatedAt).Scan(&c.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chat.ErrConversationExists
	}
	if err != nil {
		return nil, err
	}

	if err := insertMessage(ctx, tx, c.ID, first); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	c.Messages = []chat.Message{first}
	return &c, nil
}

func (r *PgChatRepository) AppendMessage(ctx context.Context, conversationID string, m chat.Message) (*chat.Conversation, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	if _, err := uuid.Parse(conversationID); err != nil {
		return nil, chat.ErrConversationNotFound
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Locking the conversation row serializes concurrent appends.
	row := tx.QueryRow(ctx, `
		UPDATE chat.conversation
		SET updated_at = GREATEST(updated_at, $2)
		WHERE id = $1::uuid
		RETURNING id::text, sender_id, receiver_id, created_at, updated_at
	`, conversationID, m.CreatedAt)
	var c chat.Conversation
	if err := row.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chat.ErrConversationNotFound
		}
		return nil, err
	}

	if err := insertMessage(ctx, tx, c.ID, m); err != nil {
		return nil, err
	}
	msgs, err := loadMessages(ctx, tx, c.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	c.Messages = msgs
	return &c, nil
}

func (r *PgChatRepository) hydrate(ctx context.Context, q querier, row pgx.Row) (*chat.Conversation, error) {
	var c chat.Conversation
	if err := row.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	msgs, err := loadMessages(ctx, q, c.ID)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs
	return &c, nil
}

func insertMessage(ctx context.Context, tx pgx.Tx, conversationID string, m chat.Message) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO chat.message (conversation_id, sender_id, body, created_at)
		VALUES ($1::uuid, $2, $3, $4)
	`, conversationID, m.SenderID, m.Body, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// loadMessages returns the log in insertion order.
func loadMessages(ctx context.Context, q querier, conversationID string) ([]chat.Message, error) {
	rows, err := q.Query(ctx, `
		SELECT sender_id, body, created_at
		FROM chat.message
		WHERE conversation_id = $1::uuid
		ORDER BY id
	`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]chat.Message, 0)
	for rows.Next() {
		var (
			m  chat.Message
			at time.Time
		)
		if err := rows.Scan(&m.SenderID, &m.Body, &at); err != nil {
			return nil, err
		}
		m.CreatedAt = at.UTC()
		msgs = append(msgs, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}
