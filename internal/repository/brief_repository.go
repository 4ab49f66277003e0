package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briefdesk/brief-service/internal/domain"
)

// BriefRepository defines persistence access for brief documents.
type BriefRepository interface {
	Create(ctx context.Context, doc *domain.BriefDocument) error
	GetByID(ctx context.Context, id string) (*domain.BriefDocument, error)
	GetByConversationID(ctx context.Context, conversationID string) (*domain.BriefDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.BriefStatus, at time.Time, sentTo string) error
}

type briefRepository struct {
	pool *pgxpool.Pool
}

// NewBriefRepository returns a Postgres-backed implementation.
func NewBriefRepository(pool *pgxpool.Pool) BriefRepository {
	return &briefRepository{pool: pool}
}

const briefColumns = `
        id, conversation_id, user_id, brief, version, status, email_sent_to,
        created_at, updated_at, email_sent_at, viewed_at, accepted_at`

func (r *briefRepository) Create(ctx context.Context, doc *domain.BriefDocument) error {
	const query = `
        INSERT INTO briefs (id, conversation_id, user_id, brief, version, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	data, err := encodeJSON(doc.Brief)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, query,
		doc.ID,
		doc.ConversationID,
		doc.UserID,
		data,
		doc.Version,
		doc.Status,
		doc.CreatedAt,
	)
	if err != nil {
		return err
	}
	doc.UpdatedAt = doc.CreatedAt
	return nil
}

func (r *briefRepository) GetByID(ctx context.Context, id string) (*domain.BriefDocument, error) {
	query := `SELECT` + briefColumns + ` FROM briefs WHERE id=$1`
	return scanBrief(r.pool.QueryRow(ctx, query, id))
}

func (r *briefRepository) GetByConversationID(ctx context.Context, conversationID string) (*domain.BriefDocument, error) {
	query := `SELECT` + briefColumns + ` FROM briefs WHERE conversation_id=$1`
	return scanBrief(r.pool.QueryRow(ctx, query, conversationID))
}

func (r *briefRepository) UpdateStatus(ctx context.Context, id string, status domain.BriefStatus, at time.Time, sentTo string) error {
	const query = `
        UPDATE briefs SET
            status=$1,
            updated_at=$2,
            email_sent_at=CASE WHEN $1='sent' THEN $2 ELSE email_sent_at END,
            email_sent_to=CASE WHEN $1='sent' THEN $3 ELSE email_sent_to END,
            viewed_at=CASE WHEN $1='viewed' THEN COALESCE(viewed_at, $2) ELSE viewed_at END,
            accepted_at=CASE WHEN $1='accepted' THEN $2 ELSE accepted_at END
        WHERE id=$4`

	cmd, err := r.pool.Exec(ctx, query, string(status), at, sentTo, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanBrief(row pgx.Row) (*domain.BriefDocument, error) {
	var (
		doc  domain.BriefDocument
		data []byte
	)
	if err := row.Scan(
		&doc.ID,
		&doc.ConversationID,
		&doc.UserID,
		&data,
		&doc.Version,
		&doc.Status,
		&doc.EmailSentTo,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.EmailSentAt,
		&doc.ViewedAt,
		&doc.AcceptedAt,
	); err != nil {
		return nil, err
	}
	brief, err := decodeOptional[domain.Brief](data)
	if err != nil {
		return nil, err
	}
	if brief != nil {
		doc.Brief = *brief
	}
	return &doc, nil
}
