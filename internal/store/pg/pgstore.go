package pg

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"eamauth.org/internal/auth"
)

// Store implements auth.Store using PostgreSQL through database/sql with the
// pgx stdlib driver.
type Store struct {
	db *sql.DB
}

var _ auth.Store = (*Store)(nil)

// Open connects to the database and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (tests use sqlmock through this).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users(context.Context) auth.UserStore {
	return &userStore{db: s.db}
}

func (s *Store) PurposeTokens(context.Context) auth.PurposeTokenStore {
	return &purposeTokenStore{db: s.db}
}
