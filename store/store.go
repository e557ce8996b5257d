package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore is a SessionStore backed by the sessions table.
type PostgresStore struct {
	DB *sql.DB

	// per-session mutexes so concurrent sign-ins on one browser session in
	// this process do not interleave. Keys are session id -> *sync.Mutex
	locks sync.Map
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	DB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := DB.Ping(); err != nil {
		DB.Close()
		return nil, err
	}
	return &PostgresStore{DB: DB}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

// Migrate runs the schema script; it must be idempotent.
func (s *PostgresStore) Migrate(ctx context.Context, schema string) error {
	_, err := s.DB.ExecContext(ctx, schema)
	return err
}

func (s *PostgresStore) lockForSession(id string) func() {
	if v, ok := s.locks.Load(id); ok {
		m := v.(*sync.Mutex)
		m.Lock()
		return m.Unlock
	}
	actual, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := actual.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *PostgresStore) Save(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return errors.New("session id required")
	}
	unlock := s.lockForSession(sess.ID)
	defer unlock()

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, subject, email, name, role, access_token, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id)
		DO UPDATE SET subject = EXCLUDED.subject, email = EXCLUDED.email, name = EXCLUDED.name,
			role = EXCLUDED.role, access_token = EXCLUDED.access_token, expires_at = EXCLUDED.expires_at
	`, sess.ID, sess.Subject, nullable(sess.Email), nullable(sess.Name), nullable(sess.Role),
		sess.Token, sess.ExpiresAt.UTC(), sess.CreatedAt.UTC())
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Session, error) {
	var (
		sess              Session
		email, name, role sql.NullString
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, subject, email, name, role, access_token, expires_at, created_at FROM sessions WHERE id=$1`, id,
	).Scan(&sess.ID, &sess.Subject, &email, &name, &role, &sess.Token, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	sess.Email, sess.Name, sess.Role = email.String, name.String, role.String
	return sess, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	unlock := s.lockForSession(id)
	defer func() {
		unlock()
		s.locks.Delete(id)
	}()
	_, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id=$1`, id)
	return err
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
