package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"linkup-chat/internal/domain"
)

// MessageRepository define el contrato de persistencia para mensajes directos.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	GetByID(ctx context.Context, id string) (domain.Message, error)
	ListConversation(ctx context.Context, userA, userB string) ([]domain.Message, error)
	MarkRead(ctx context.Context, id string) (domain.Message, error)
}

// PgMessageRepository implementa MessageRepository usando pgxpool.
type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, sender_id, receiver_id, content, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.SenderID,
		message.ReceiverID,
		message.Content,
		message.Read,
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) GetByID(ctx context.Context, id string) (domain.Message, error) {
	const query = `
		SELECT id, sender_id, receiver_id, content, read, created_at
		FROM messages
		WHERE id = $1
	`

	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Content,
		&msg.Read,
		&msg.CreatedAt,
	)
	return msg, err
}

// ListConversation devuelve los mensajes del par no ordenado {userA, userB}
// ascendentes por created_at; seq desempata inserciones con el mismo timestamp.
func (r *PgMessageRepository) ListConversation(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	const query = `
		SELECT id, sender_id, receiver_id, content, read, created_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := r.pool.Query(ctx, query, userA, userB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		err = rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.ReceiverID,
			&msg.Content,
			&msg.Read,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *PgMessageRepository) MarkRead(ctx context.Context, id string) (domain.Message, error) {
	const query = `
		UPDATE messages
		SET read = TRUE
		WHERE id = $1
		RETURNING id, sender_id, receiver_id, content, read, created_at
	`

	var msg domain.Message
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Content,
		&msg.Read,
		&msg.CreatedAt,
	)
	return msg, err
}
