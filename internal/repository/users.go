package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/comedor/internal/model"
)

const userColumns = `id, login, display_name, role, subsidy_mode, password_hash, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var (
		u       model.User
		role    string
		subsidy string
	)
	if err := row.Scan(&u.ID, &u.Login, &u.DisplayName, &role, &subsidy, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.SubsidyMode = model.SubsidyMode(subsidy)
	return &u, nil
}

// CreateUser создаёт нового пользователя.
func (q *Queries) CreateUser(ctx context.Context, u model.User) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO users (login, display_name, role, subsidy_mode, password_hash)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		u.Login, u.DisplayName, string(u.Role), string(u.SubsidyMode), u.PasswordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, u.Login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (q *Queries) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE login = $1`,
		login,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers возвращает всех пользователей в порядке регистрации.
func (q *Queries) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var res []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		res = append(res, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// UpdateUserSubsidy меняет режим компенсации пользователя.
func (q *Queries) UpdateUserSubsidy(ctx context.Context, id int64, mode model.SubsidyMode) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET subsidy_mode = $2 WHERE id = $1`,
		id, string(mode),
	)
	if err != nil {
		return fmt.Errorf("update subsidy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword сохраняет новый хеш пароля.
func (q *Queries) UpdatePassword(ctx context.Context, id int64, passwordHash []byte) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		id, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
