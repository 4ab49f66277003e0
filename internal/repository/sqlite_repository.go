package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/briefdesk/brief-service/internal/domain"
)

// The SQLite implementations mirror the Postgres ones. Times are stored as
// fixed-width UTC text and documents as JSON text.

type sqliteConversationRepository struct {
	db *sql.DB
}

// NewSQLiteConversationRepository returns a SQLite-backed implementation.
func NewSQLiteConversationRepository(db *sql.DB) ConversationRepository {
	return &sqliteConversationRepository{db: db}
}

const sqliteConversationColumns = `
	id, user_id, messages, brief, contact_info, status, language, project_type,
	created_at, updated_at, completed_at, email_sent_at, email_status, email_message_id,
	email_attempts, last_email_attempt, email_error`

func (r *sqliteConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	const query = `
		INSERT INTO conversations (id, user_id, messages, status, language, project_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	messages, err := encodeJSON(conv.Messages)
	if err != nil {
		return err
	}
	created := formatTime(conv.CreatedAt)
	if _, err := r.db.ExecContext(ctx, query,
		conv.ID, conv.UserID, string(messages), string(conv.Status), string(conv.Language), conv.ProjectType, created, created,
	); err != nil {
		return err
	}
	conv.UpdatedAt = conv.CreatedAt
	return nil
}

func (r *sqliteConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	query := `SELECT` + sqliteConversationColumns + ` FROM conversations WHERE id = ?`
	return scanSQLiteConversation(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteConversationRepository) UpdateTranscript(ctx context.Context, id string, messages []domain.Message, language domain.Language) error {
	data, err := encodeJSON(messages)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET messages = ?, language = ?, updated_at = ? WHERE id = ?`,
		string(data), string(language), formatTime(time.Now()), id,
	)
	return requireAffected(res, err)
}

func (r *sqliteConversationRepository) Complete(ctx context.Context, id string, completion Completion) (bool, error) {
	const query = `
		UPDATE conversations
		SET user_id = ?, brief = ?, contact_info = ?, project_type = ?, status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	brief, err := encodeJSON(completion.Brief)
	if err != nil {
		return false, err
	}
	contact, err := encodeJSON(completion.ContactInfo)
	if err != nil {
		return false, err
	}
	at := formatTime(completion.CompletedAt)
	res, err := r.db.ExecContext(ctx, query,
		completion.UserID, string(brief), string(contact), completion.ProjectType,
		string(domain.ConversationStatusCompleted), at, at,
		id, string(domain.ConversationStatusActive),
	)
	return r.changedOrExists(ctx, id, res, err)
}

func (r *sqliteConversationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ConversationStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), formatTime(time.Now()), id, string(from),
	)
	return r.changedOrExists(ctx, id, res, err)
}

func (r *sqliteConversationRepository) RecordEmailSuccess(ctx context.Context, id string, attempt domain.EmailAttempt) (int, error) {
	const query = `
		UPDATE conversations
		SET email_sent_at = ?, email_status = ?, email_message_id = ?, email_attempts = email_attempts + 1,
			last_email_attempt = ?, email_error = NULL, updated_at = ?
		WHERE id = ?
		RETURNING email_attempts`

	at := formatTime(attempt.At)
	var attempts int
	err := r.db.QueryRowContext(ctx, query, at, attempt.Status, attempt.MessageID, at, at, id).Scan(&attempts)
	return attempts, err
}

func (r *sqliteConversationRepository) RecordEmailFailure(ctx context.Context, id string, attempt domain.EmailAttempt) (int, error) {
	const query = `
		UPDATE conversations
		SET email_status = ?, email_error = ?, email_attempts = email_attempts + 1,
			last_email_attempt = ?, updated_at = ?
		WHERE id = ?
		RETURNING email_attempts`

	emailErr, err := encodeOptional(attempt.Error)
	if err != nil {
		return 0, err
	}
	at := formatTime(attempt.At)
	var attempts int
	err = r.db.QueryRowContext(ctx, query, domain.EmailStatusFailed, nullableString(emailErr), at, at, id).Scan(&attempts)
	return attempts, err
}

func (r *sqliteConversationRepository) ListEmailActivity(ctx context.Context, since time.Time) ([]domain.Conversation, error) {
	query := `SELECT` + sqliteConversationColumns + `
		FROM conversations
		WHERE last_email_attempt >= ? OR email_sent_at >= ?
		ORDER BY last_email_attempt IS NULL, last_email_attempt DESC`

	start := formatTime(since)
	rows, err := r.db.QueryContext(ctx, query, start, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		conv, err := scanSQLiteConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conv)
	}
	return conversations, rows.Err()
}

func (r *sqliteConversationRepository) changedOrExists(ctx context.Context, id string, res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, id).Scan(&one); err != nil {
		return false, err
	}
	return false, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteConversation(row rowScanner) (*domain.Conversation, error) {
	var (
		conv                                  domain.Conversation
		status, language                      string
		messages                              string
		brief, contact, emailErr              sql.NullString
		createdAt, updatedAt                  string
		completedAt, emailSentAt, lastAttempt sql.NullString
	)
	if err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&messages,
		&brief,
		&contact,
		&status,
		&language,
		&conv.ProjectType,
		&createdAt,
		&updatedAt,
		&completedAt,
		&emailSentAt,
		&conv.EmailStatus,
		&conv.EmailMessageID,
		&conv.EmailAttempts,
		&lastAttempt,
		&emailErr,
	); err != nil {
		return nil, err
	}
	conv.Status = domain.ConversationStatus(status)
	conv.Language = domain.Language(language)

	var err error
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if conv.CompletedAt, err = parseOptionalTime(completedAt); err != nil {
		return nil, err
	}
	if conv.EmailSentAt, err = parseOptionalTime(emailSentAt); err != nil {
		return nil, err
	}
	if conv.LastEmailAttempt, err = parseOptionalTime(lastAttempt); err != nil {
		return nil, err
	}
	return decodeConversationDocs(&conv, []byte(messages), nullableBytes(brief), nullableBytes(contact), nullableBytes(emailErr))
}

type sqliteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository returns a SQLite-backed implementation.
func NewSQLiteUserRepository(db *sql.DB) UserRepository {
	return &sqliteUserRepository{db: db}
}

func (r *sqliteUserRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
		INSERT INTO users (id, email, phone, name, company, conversation_ids, total_briefs, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	ids := user.ConversationIDs
	if ids == nil {
		ids = []string{}
	}
	data, err := encodeJSON(ids)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Phone, user.Name, user.Company, string(data), user.TotalBriefs,
		formatTime(user.CreatedAt), formatTime(user.LastActiveAt),
	)
	return err
}

func (r *sqliteUserRepository) Update(ctx context.Context, user *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET phone = ?, name = ?, company = ?, last_active_at = ? WHERE id = ?`,
		user.Phone, user.Name, user.Company, formatTime(user.LastActiveAt), user.ID,
	)
	return requireAffected(res, err)
}

const sqliteUserColumns = `id, email, phone, name, company, conversation_ids, total_briefs, created_at, last_active_at`

func (r *sqliteUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanSQLiteUser(r.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id))
}

func (r *sqliteUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanSQLiteUser(r.db.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE email = ?`, email))
}

func (r *sqliteUserRepository) AttachConversation(ctx context.Context, userID, conversationID string, at time.Time) (bool, error) {
	const query = `
		UPDATE users
		SET conversation_ids = json_insert(conversation_ids, '$[#]', ?), total_briefs = total_briefs + 1, last_active_at = ?
		WHERE id = ? AND NOT EXISTS (SELECT 1 FROM json_each(users.conversation_ids) WHERE json_each.value = ?)`

	res, err := r.db.ExecContext(ctx, query, conversationID, formatTime(at), userID, conversationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	if _, err := r.GetByID(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

func scanSQLiteUser(row rowScanner) (*domain.User, error) {
	var (
		user                domain.User
		ids                 string
		createdAt, activeAt string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Phone,
		&user.Name,
		&user.Company,
		&ids,
		&user.TotalBriefs,
		&createdAt,
		&activeAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ids), &user.ConversationIDs); err != nil {
		return nil, fmt.Errorf("decode conversation ids: %w", err)
	}
	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if user.LastActiveAt, err = parseTime(activeAt); err != nil {
		return nil, err
	}
	return &user, nil
}

type sqliteBriefRepository struct {
	db *sql.DB
}

// NewSQLiteBriefRepository returns a SQLite-backed implementation.
func NewSQLiteBriefRepository(db *sql.DB) BriefRepository {
	return &sqliteBriefRepository{db: db}
}

const sqliteBriefColumns = `
	id, conversation_id, user_id, brief, version, status, email_sent_to,
	created_at, updated_at, email_sent_at, viewed_at, accepted_at`

func (r *sqliteBriefRepository) Create(ctx context.Context, doc *domain.BriefDocument) error {
	const query = `
		INSERT INTO briefs (id, conversation_id, user_id, brief, version, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	data, err := encodeJSON(doc.Brief)
	if err != nil {
		return err
	}
	created := formatTime(doc.CreatedAt)
	if _, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.ConversationID, doc.UserID, string(data), doc.Version, string(doc.Status), created, created,
	); err != nil {
		return err
	}
	doc.UpdatedAt = doc.CreatedAt
	return nil
}

func (r *sqliteBriefRepository) GetByID(ctx context.Context, id string) (*domain.BriefDocument, error) {
	return scanSQLiteBrief(r.db.QueryRowContext(ctx, `SELECT`+sqliteBriefColumns+` FROM briefs WHERE id = ?`, id))
}

func (r *sqliteBriefRepository) GetByConversationID(ctx context.Context, conversationID string) (*domain.BriefDocument, error) {
	return scanSQLiteBrief(r.db.QueryRowContext(ctx, `SELECT`+sqliteBriefColumns+` FROM briefs WHERE conversation_id = ?`, conversationID))
}

func (r *sqliteBriefRepository) UpdateStatus(ctx context.Context, id string, status domain.BriefStatus, at time.Time, sentTo string) error {
	const query = `
		UPDATE briefs SET
			status = ?1,
			updated_at = ?2,
			email_sent_at = CASE WHEN ?1 = 'sent' THEN ?2 ELSE email_sent_at END,
			email_sent_to = CASE WHEN ?1 = 'sent' THEN ?3 ELSE email_sent_to END,
			viewed_at = CASE WHEN ?1 = 'viewed' THEN COALESCE(viewed_at, ?2) ELSE viewed_at END,
			accepted_at = CASE WHEN ?1 = 'accepted' THEN ?2 ELSE accepted_at END
		WHERE id = ?4`

	res, err := r.db.ExecContext(ctx, query, string(status), formatTime(at), sentTo, id)
	return requireAffected(res, err)
}

func scanSQLiteBrief(row rowScanner) (*domain.BriefDocument, error) {
	var (
		doc                          domain.BriefDocument
		data, status                 string
		createdAt, updatedAt         string
		sentAt, viewedAt, acceptedAt sql.NullString
	)
	if err := row.Scan(
		&doc.ID,
		&doc.ConversationID,
		&doc.UserID,
		&data,
		&doc.Version,
		&status,
		&doc.EmailSentTo,
		&createdAt,
		&updatedAt,
		&sentAt,
		&viewedAt,
		&acceptedAt,
	); err != nil {
		return nil, err
	}
	doc.Status = domain.BriefStatus(status)
	if err := json.Unmarshal([]byte(data), &doc.Brief); err != nil {
		return nil, fmt.Errorf("decode brief: %w", err)
	}

	var err error
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if doc.EmailSentAt, err = parseOptionalTime(sentAt); err != nil {
		return nil, err
	}
	if doc.ViewedAt, err = parseOptionalTime(viewedAt); err != nil {
		return nil, err
	}
	if doc.AcceptedAt, err = parseOptionalTime(acceptedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
