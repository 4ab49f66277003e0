package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briefdesk/brief-service/internal/domain"
)

// UserRepository defines persistence access for clients.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// AttachConversation appends conversationID and increments total briefs
	// unless the id is already linked. It reports whether the user changed.
	AttachConversation(ctx context.Context, userID, conversationID string, at time.Time) (bool, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, email, phone, name, company, conversation_ids, total_briefs, created_at, last_active_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	ids := user.ConversationIDs
	if ids == nil {
		ids = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Phone,
		user.Name,
		user.Company,
		ids,
		user.TotalBriefs,
		user.CreatedAt,
		user.LastActiveAt,
	)
	return err
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET phone=$1, name=$2, company=$3, last_active_at=$4
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		user.Phone,
		user.Name,
		user.Company,
		user.LastActiveAt,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, email, phone, name, company, conversation_ids, total_briefs, created_at, last_active_at
        FROM users WHERE id=$1`

	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, email, phone, name, company, conversation_ids, total_briefs, created_at, last_active_at
        FROM users WHERE email=$1`

	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) AttachConversation(ctx context.Context, userID, conversationID string, at time.Time) (bool, error) {
	const query = `
        UPDATE users
        SET conversation_ids=array_append(conversation_ids, $1), total_briefs=total_briefs+1, last_active_at=$2
        WHERE id=$3 AND NOT ($1 = ANY(conversation_ids))`

	cmd, err := r.pool.Exec(ctx, query, conversationID, at, userID)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() > 0 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.Name,
		&user.Company,
		&user.ConversationIDs,
		&user.TotalBriefs,
		&user.CreatedAt,
		&user.LastActiveAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
