package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eamauth.org/internal/auth"
	"eamauth.org/internal/ids"
)

type userStore struct{ db *sql.DB }

const userColumns = `id, email, password_hash, role, department, phone, cin, status, last_login, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, role, department, phone, cin, status)
		 values($1,$2,$3,$4,nullif($5,''),$6,$7,$8)`,
		u.ID, u.Email, u.PasswordHash, string(u.Role), string(u.Department), u.Phone, u.CIN, string(u.Status),
	)
	return err
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var (
		u          auth.User
		department sql.NullString
		lastLogin  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &department, &u.Phone, &u.CIN,
		&u.Status, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	if department.Valid {
		u.Department = auth.Department(department.String)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1`, email))
}

func (s *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where email=$1)`, email).Scan(&exists)
	return exists, err
}

func (s *userStore) UpdateStatus(ctx context.Context, id string, status auth.Status) error {
	res, err := s.db.ExecContext(ctx,
		`update users set status=$2, updated_at=now() where id=$1`, id, string(status))
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`, id, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login=$2 where id=$1`, id, at)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow maps zero affected rows to auth.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
