package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL through database/sql.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

// FindUserByRut looks up a user by normalized RUT. The stored column
// is normalized inside the query so inconsistent storage formats
// (stray whitespace, lower-case, dot separators) still match.
func (s *PGStore) FindUserByRut(ctx context.Context, rut string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, rut, user_name, email, password_hash, is_active, created_at, last_login, system_id
		 from users
		 where replace(upper(btrim(rut)), '.', '') = $1`, rut)
	var u User
	if err := row.Scan(&u.ID, &u.Rut, &u.UserName, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.LastLogin, &u.SystemID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) RoleIDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`select role_id from user_roles where user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PGStore) PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(roleIDs))
	args := make([]any, len(roleIDs))
	for i, id := range roleIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(
		`select distinct p.permission_name
		 from role_permissions rp
		 join permissions p on p.id = rp.permission_id
		 where rp.role_id in (%s)`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *PGStore) CreateSessionToken(ctx context.Context, tok *SessionToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into user_tokens(id, user_id, token, device_info, ip_address, country, created_at, expires_at, is_revoked, query_at, system_id)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		tok.ID, tok.UserID, tok.Token, tok.DeviceInfo, tok.IPAddress, tok.Country,
		tok.CreatedAt, tok.ExpiresAt, tok.IsRevoked, tok.QueryAt, tok.SystemID,
	)
	return err
}

func (s *PGStore) SessionsForUser(ctx context.Context, userID int64, limit int) ([]*SessionToken, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, user_id, token, device_info, ip_address, country, created_at, expires_at, is_revoked, query_at, system_id
		 from user_tokens
		 where user_id = $1
		 order by created_at desc
		 limit $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*SessionToken
	for rows.Next() {
		var tok SessionToken
		if err := rows.Scan(&tok.ID, &tok.UserID, &tok.Token, &tok.DeviceInfo, &tok.IPAddress, &tok.Country,
			&tok.CreatedAt, &tok.ExpiresAt, &tok.IsRevoked, &tok.QueryAt, &tok.SystemID); err != nil {
			return nil, err
		}
		sessions = append(sessions, &tok)
	}
	return sessions, rows.Err()
}

func (s *PGStore) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set last_login = $1 where id = $2`, at, userID)
	return err
}
