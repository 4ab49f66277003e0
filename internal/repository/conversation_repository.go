package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briefdesk/brief-service/internal/domain"
)

// Completion carries the fields written when a conversation completes.
type Completion struct {
	UserID      string
	Brief       domain.Brief
	ContactInfo domain.ContactInfo
	ProjectType string
	CompletedAt time.Time
}

// ConversationRepository defines persistence access for conversations.
type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	UpdateTranscript(ctx context.Context, id string, messages []domain.Message, language domain.Language) error
	// Complete moves an active conversation to completed. It reports false
	// when the conversation exists but was no longer active.
	Complete(ctx context.Context, id string, completion Completion) (bool, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.ConversationStatus) (bool, error)
	RecordEmailSuccess(ctx context.Context, id string, attempt domain.EmailAttempt) (int, error)
	RecordEmailFailure(ctx context.Context, id string, attempt domain.EmailAttempt) (int, error)
	ListEmailActivity(ctx context.Context, since time.Time) ([]domain.Conversation, error)
}

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository returns a Postgres-backed implementation.
func NewConversationRepository(pool *pgxpool.Pool) ConversationRepository {
	return &conversationRepository{pool: pool}
}

const conversationColumns = `
        id, user_id, messages, brief, contact_info, status, language, project_type,
        created_at, updated_at, completed_at, email_sent_at, email_status, email_message_id,
        email_attempts, last_email_attempt, email_error`

func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	const query = `
        INSERT INTO conversations (id, user_id, messages, status, language, project_type, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	messages, err := encodeJSON(conv.Messages)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query,
		conv.ID,
		conv.UserID,
		messages,
		conv.Status,
		conv.Language,
		conv.ProjectType,
		conv.CreatedAt,
	)
	if err != nil {
		return err
	}
	conv.UpdatedAt = conv.CreatedAt
	return nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT` + conversationColumns + ` FROM conversations WHERE id=$1`
	return scanConversation(r.pool.QueryRow(ctx, query, id))
}

func (r *conversationRepository) UpdateTranscript(ctx context.Context, id string, messages []domain.Message, language domain.Language) error {
	const query = `
        UPDATE conversations SET messages=$1, language=$2, updated_at=NOW()
        WHERE id=$3`

	data, err := encodeJSON(messages)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, query, data, language, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *conversationRepository) Complete(ctx context.Context, id string, completion Completion) (bool, error) {
	const query = `
        UPDATE conversations
        SET user_id=$1, brief=$2, contact_info=$3, project_type=$4, status=$5,
            completed_at=$6, updated_at=$6
        WHERE id=$7 AND status=$8`

	brief, err := encodeJSON(completion.Brief)
	if err != nil {
		return false, err
	}
	contact, err := encodeJSON(completion.ContactInfo)
	if err != nil {
		return false, err
	}
	cmd, err := r.pool.Exec(ctx, query,
		completion.UserID,
		brief,
		contact,
		completion.ProjectType,
		domain.ConversationStatusCompleted,
		completion.CompletedAt,
		id,
		domain.ConversationStatusActive,
	)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() > 0 {
		return true, nil
	}
	return false, r.exists(ctx, id)
}

func (r *conversationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ConversationStatus) (bool, error) {
	const query = `UPDATE conversations SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`

	cmd, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() > 0 {
		return true, nil
	}
	return false, r.exists(ctx, id)
}

func (r *conversationRepository) RecordEmailSuccess(ctx context.Context, id string, attempt domain.EmailAttempt) (int, error) {
	const query = `
        UPDATE conversations
        SET email_sent_at=$1, email_status=$2, email_message_id=$3, email_attempts=email_attempts+1,
            last_email_attempt=$1, email_error=NULL, updated_at=$1
        WHERE id=$4
        RETURNING email_attempts`

	var attempts int
	err := r.pool.QueryRow(ctx, query, attempt.At, attempt.Status, attempt.MessageID, id).Scan(&attempts)
	return attempts, err
}

func (r *conversationRepository) RecordEmailFailure(ctx context.Context, id string, attempt domain.EmailAttempt) (int, error) {
	const query = `
        UPDATE conversations
        SET email_status=$1, email_error=$2, email_attempts=email_attempts+1,
            last_email_attempt=$3, updated_at=$3
        WHERE id=$4
        RETURNING email_attempts`

	emailErr, err := encodeOptional(attempt.Error)
	if err != nil {
		return 0, err
	}
	var attempts int
	err = r.pool.QueryRow(ctx, query, domain.EmailStatusFailed, emailErr, attempt.At, id).Scan(&attempts)
	return attempts, err
}

func (r *conversationRepository) ListEmailActivity(ctx context.Context, since time.Time) ([]domain.Conversation, error) {
	query := `SELECT` + conversationColumns + `
        FROM conversations
        WHERE last_email_attempt >= $1 OR email_sent_at >= $1
        ORDER BY last_email_attempt DESC NULLS LAST`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}

func (r *conversationRepository) exists(ctx context.Context, id string) error {
	var found bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM conversations WHERE id=$1)`, id).Scan(&found); err != nil {
		return err
	}
	if !found {
		return pgx.ErrNoRows
	}
	return nil
}

func scanConversation(row pgx.Row) (*domain.Conversation, error) {
	var (
		conv                          domain.Conversation
		messages, brief, contact, eml []byte
	)
	if err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&messages,
		&brief,
		&contact,
		&conv.Status,
		&conv.Language,
		&conv.ProjectType,
		&conv.CreatedAt,
		&conv.UpdatedAt,
		&conv.CompletedAt,
		&conv.EmailSentAt,
		&conv.EmailStatus,
		&conv.EmailMessageID,
		&conv.EmailAttempts,
		&conv.LastEmailAttempt,
		&eml,
	); err != nil {
		return nil, err
	}
	return decodeConversationDocs(&conv, messages, brief, contact, eml)
}

func decodeConversationDocs(conv *domain.Conversation, messages, brief, contact, emailErr []byte) (*domain.Conversation, error) {
	var err error
	if conv.Messages, err = decodeMessages(messages); err != nil {
		return nil, err
	}
	if conv.Brief, err = decodeOptional[domain.Brief](brief); err != nil {
		return nil, err
	}
	if conv.ContactInfo, err = decodeOptional[domain.ContactInfo](contact); err != nil {
		return nil, err
	}
	if conv.EmailError, err = decodeOptional[domain.EmailError](emailErr); err != nil {
		return nil, err
	}
	return conv, nil
}
