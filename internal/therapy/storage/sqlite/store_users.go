package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sakshi-health/sakshi/internal/therapy/domain"
	"github.com/sakshi-health/sakshi/internal/therapy/storage"
)

// PutUser inserts or replaces a user by ID.
func (s *Store) PutUser(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT OR REPLACE INTO users (id, display_name, created_at) VALUES (?, ?, ?)
`,
		user.ID,
		user.DisplayName,
		toMillis(user.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser returns the user with the given ID or storage.ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.User{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.User{}, fmt.Errorf("user id is required")
	}

	var user domain.User
	var createdAt int64
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, display_name, created_at FROM users WHERE id = ?
`, id)
	if err := row.Scan(&user.ID, &user.DisplayName, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.User{}, storage.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}
