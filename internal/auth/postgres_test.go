package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockStore(t *testing.T) (*PGStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewPGStore(db), mock, func() { db.Close() }
}

func TestFindUserByRutNormalizesStoredColumn(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "rut", "user_name", "email", "password_hash", "is_active", "created_at", "last_login", "system_id"}).
		AddRow(int64(7), "12345678-5", "jperez", "jperez@example.cl", "$2a$10$hash", true, created, nil, 3)
	mock.ExpectQuery(`replace\(upper\(btrim\(rut\)\), '\.', ''\) = \$1`).
		WithArgs("12345678-5").
		WillReturnRows(rows)

	user, err := store.FindUserByRut(context.Background(), "12345678-5")
	if err != nil {
		t.Fatalf("FindUserByRut: %v", err)
	}
	if user.ID != 7 || user.UserName != "jperez" || user.LastLogin != nil {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindUserByRutNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(`from users`).WithArgs("99999999-9").WillReturnError(sql.ErrNoRows)

	_, err := store.FindUserByRut(context.Background(), "99999999-9")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoleIDsForUser(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	rows := sqlmock.NewRows([]string{"role_id"}).AddRow(int64(1)).AddRow(int64(4))
	mock.ExpectQuery(`select role_id from user_roles`).WithArgs(int64(7)).WillReturnRows(rows)

	ids, err := store.RoleIDsForUser(context.Background(), 7)
	if err != nil {
		t.Fatalf("RoleIDsForUser: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 4 {
		t.Fatalf("unexpected role ids: %v", ids)
	}
}

func TestPermissionsForRoles(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	rows := sqlmock.NewRows([]string{"permission_name"}).AddRow("visits.read").AddRow("reports.create")
	mock.ExpectQuery(`where rp.role_id in \(\$1,\$2\)`).WithArgs(int64(1), int64(4)).WillReturnRows(rows)

	perms, err := store.PermissionsForRoles(context.Background(), []int64{1, 4})
	if err != nil {
		t.Fatalf("PermissionsForRoles: %v", err)
	}
	if len(perms) != 2 || perms[0] != "visits.read" {
		t.Fatalf("unexpected permissions: %v", perms)
	}
}

func TestPermissionsForRolesEmptyInputSkipsQuery(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	perms, err := store.PermissionsForRoles(context.Background(), nil)
	if err != nil || perms != nil {
		t.Fatalf("expected empty no-op result, got %v %v", perms, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query expected: %v", err)
	}
}

func TestCreateSessionToken(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	country := "Chile"
	ip := "200.83.1.10"
	tok := &SessionToken{
		ID:         "01J0000000000000000000000X",
		UserID:     7,
		Token:      "signed.jwt.value",
		DeviceInfo: "Desktop - Windows 10",
		IPAddress:  &ip,
		Country:    &country,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
		QueryAt:    now,
		SystemID:   3,
	}
	mock.ExpectExec(`insert into user_tokens`).
		WithArgs(tok.ID, tok.UserID, tok.Token, tok.DeviceInfo, ip, country,
			tok.CreatedAt, tok.ExpiresAt, false, tok.QueryAt, tok.SystemID).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.CreateSessionToken(context.Background(), tok); err != nil {
		t.Fatalf("CreateSessionToken: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionsForUser(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "token", "device_info", "ip_address", "country", "created_at", "expires_at", "is_revoked", "query_at", "system_id"}).
		AddRow("01X", int64(7), "tok", "Desktop - Linux", nil, nil, now, now.Add(time.Hour), false, now, 3)
	mock.ExpectQuery(`from user_tokens`).WithArgs(int64(7), 10).WillReturnRows(rows)

	sessions, err := store.SessionsForUser(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("SessionsForUser: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "01X" || sessions[0].IPAddress != nil {
		t.Fatalf("unexpected sessions: %+v", sessions[0])
	}
}

func TestTouchLastLogin(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(`update users set last_login`).
		WithArgs(at, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.TouchLastLogin(context.Background(), 7, at); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
}
