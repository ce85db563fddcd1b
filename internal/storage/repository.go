// Package storage is the SQLite persistence layer. All queries that touch
// expenses take an explicit visibility scope so that an unscoped read is
// impossible to express.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure. modernc.org/sqlite surfaces these as plain errors, so the
// message text is the only discriminator available.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser inserts a new account. A concurrent insert of the same
// username loses the race at the UNIQUE constraint and surfaces as the
// same validation outcome a sequential duplicate would.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string, isSuperadmin bool) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, is_superadmin) VALUES (?, ?, ?)",
		username, passwordHash, isSuperadmin,
	)
	if isUniqueViolation(err) {
		return core.User{}, core.NewValidationError("username", "username already taken")
	}
	if err != nil {
		return core.User{}, &core.StorageError{Op: "create user", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, &core.StorageError{Op: "create user", Err: err}
	}
	return r.GetUserByID(ctx, id)
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, is_superadmin, created_at FROM users WHERE id = ?", id))
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, is_superadmin, created_at FROM users WHERE username = ?", username))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsSuperadmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, &core.StorageError{Op: "get user", Err: err}
	}
	return u, nil
}

// UpdatePassword replaces a user's password hash.
func (r *SQLiteRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID)
	if err != nil {
		return &core.StorageError{Op: "update password", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SetSuperadmin flips the superadmin flag on an existing account.
// Provisioning uses it to heal a demoted superadmin row.
func (r *SQLiteRepository) SetSuperadmin(ctx context.Context, userID int64, isSuperadmin bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_superadmin = ? WHERE id = ?", isSuperadmin, userID)
	if err != nil {
		return &core.StorageError{Op: "set superadmin", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) UserCount(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, &core.StorageError{Op: "count users", Err: err}
	}
	return count, nil
}

// DeleteUser removes an account. The schema cascades the delete to the
// user's expenses, role and menu grants, and sessions.
func (r *SQLiteRepository) DeleteUser(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", userID)
	if err != nil {
		return &core.StorageError{Op: "delete user", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// EnsureRole creates the role if it does not exist and returns it. Safe
// to call repeatedly and from concurrent provisioners.
func (r *SQLiteRepository) EnsureRole(ctx context.Context, name string) (core.Role, error) {
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO roles (name) VALUES (?)", name); err != nil {
		return core.Role{}, &core.StorageError{Op: "ensure role", Err: err}
	}

	var role core.Role
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM roles WHERE name = ?", name).Scan(&role.ID, &role.Name)
	if err != nil {
		return core.Role{}, &core.StorageError{Op: "ensure role", Err: err}
	}
	return role, nil
}

// EnsureMenu creates the menu entry if it does not exist and returns it.
// The URL of an existing entry is left as-is.
func (r *SQLiteRepository) EnsureMenu(ctx context.Context, title, url string) (core.Menu, error) {
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO menus (title, url) VALUES (?, ?)", title, url); err != nil {
		return core.Menu{}, &core.StorageError{Op: "ensure menu", Err: err}
	}

	var menu core.Menu
	err := r.db.QueryRowContext(ctx,
		"SELECT id, title, url FROM menus WHERE title = ?", title).Scan(&menu.ID, &menu.Title, &menu.URL)
	if err != nil {
		return core.Menu{}, &core.StorageError{Op: "ensure menu", Err: err}
	}
	return menu, nil
}

// GrantRole links a user to a role. Granting an already-held role is a
// no-op, not an error.
func (r *SQLiteRepository) GrantRole(ctx context.Context, userID, roleID int64) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_roles (user_id, role_id) VALUES (?, ?)", userID, roleID); err != nil {
		return &core.StorageError{Op: "grant role", Err: err}
	}
	return nil
}

// RevokeRole removes a role grant. Revoking a role the user does not
// hold is a no-op.
func (r *SQLiteRepository) RevokeRole(ctx context.Context, userID, roleID int64) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id = ? AND role_id = ?", userID, roleID); err != nil {
		return &core.StorageError{Op: "revoke role", Err: err}
	}
	return nil
}

// GetRole looks up a role by name.
func (r *SQLiteRepository) GetRole(ctx context.Context, name string) (core.Role, error) {
	var role core.Role
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name FROM roles WHERE name = ?", name).Scan(&role.ID, &role.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Role{}, core.ErrNotFound
	}
	if err != nil {
		return core.Role{}, &core.StorageError{Op: "get role", Err: err}
	}
	return role, nil
}

// GrantMenu links a user to a menu entry. Idempotent like GrantRole.
func (r *SQLiteRepository) GrantMenu(ctx context.Context, userID, menuID int64) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_menus (user_id, menu_id) VALUES (?, ?)", userID, menuID); err != nil {
		return &core.StorageError{Op: "grant menu", Err: err}
	}
	return nil
}

// RolesForUser returns the names of the roles held by a user, sorted.
func (r *SQLiteRepository) RolesForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ?
		ORDER BY r.name ASC
	`, userID)
	if err != nil {
		return nil, &core.StorageError{Op: "roles for user", Err: err}
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &core.StorageError{Op: "roles for user", Err: err}
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "roles for user", Err: err}
	}
	return names, nil
}

// MenusForUser returns the menu entries visible to a user, ordered by
// title so navigation renders deterministically.
func (r *SQLiteRepository) MenusForUser(ctx context.Context, userID int64) ([]core.Menu, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.title, m.url
		FROM user_menus um
		JOIN menus m ON m.id = um.menu_id
		WHERE um.user_id = ?
		ORDER BY m.title ASC
	`, userID)
	if err != nil {
		return nil, &core.StorageError{Op: "menus for user", Err: err}
	}
	defer rows.Close()

	var menus []core.Menu
	for rows.Next() {
		var m core.Menu
		if err := rows.Scan(&m.ID, &m.Title, &m.URL); err != nil {
			return nil, &core.StorageError{Op: "menus for user", Err: err}
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "menus for user", Err: err}
	}
	return menus, nil
}

// ListMenus returns every menu entry, ordered by title.
func (r *SQLiteRepository) ListMenus(ctx context.Context) ([]core.Menu, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, title, url FROM menus ORDER BY title ASC")
	if err != nil {
		return nil, &core.StorageError{Op: "list menus", Err: err}
	}
	defer rows.Close()

	var menus []core.Menu
	for rows.Next() {
		var m core.Menu
		if err := rows.Scan(&m.ID, &m.Title, &m.URL); err != nil {
			return nil, &core.StorageError{Op: "list menus", Err: err}
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "list menus", Err: err}
	}
	return menus, nil
}

// OwnerDirectory loads every user together with their role names, keyed
// by user id. The admin dashboard resolves per-user buckets through it.
func (r *SQLiteRepository) OwnerDirectory(ctx context.Context) (map[int64]core.OwnerInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.is_superadmin, r.name
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles r ON r.id = ur.role_id
		ORDER BY u.id ASC
	`)
	if err != nil {
		return nil, &core.StorageError{Op: "owner directory", Err: err}
	}
	defer rows.Close()

	dir := make(map[int64]core.OwnerInfo)
	for rows.Next() {
		var (
			id           int64
			username     string
			isSuperadmin bool
			role         sql.NullString
		)
		if err := rows.Scan(&id, &username, &isSuperadmin, &role); err != nil {
			return nil, &core.StorageError{Op: "owner directory", Err: err}
		}
		info := dir[id]
		info.Username = username
		info.IsSuperadmin = isSuperadmin
		if role.Valid {
			info.Roles = append(info.Roles, role.String)
		}
		dir[id] = info
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "owner directory", Err: err}
	}
	return dir, nil
}
