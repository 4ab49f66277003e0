package repository

import (
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the repositories of one storage backend.
type Store struct {
	Conversations ConversationRepository
	Users         UserRepository
	Briefs        BriefRepository
}

// NewPostgresStore builds repositories over a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Conversations: NewConversationRepository(pool),
		Users:         NewUserRepository(pool),
		Briefs:        NewBriefRepository(pool),
	}
}

// NewSQLiteStore builds repositories over an embedded database.
func NewSQLiteStore(db *sql.DB) *Store {
	return &Store{
		Conversations: NewSQLiteConversationRepository(db),
		Users:         NewSQLiteUserRepository(db),
		Briefs:        NewSQLiteBriefRepository(db),
	}
}
