package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kharelcodes/bloghub/internal/domain/user"
	"github.com/kharelcodes/bloghub/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

const userColumns = `id, email, password_hash, first_name, last_name, is_admin, reset_code, reset_code_expiry, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsAdmin,
		&u.ResetCode,
		&u.ResetCodeExp,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// GetByEmail matches the stored email exactly (case-sensitive).
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`,
			email,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, firstName, lastName string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		IsAdmin:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, first_name, last_name, is_admin, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, req user.UpdateProfileRequest) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.update_profile", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users
				SET first_name = COALESCE($2, first_name),
				    last_name  = COALESCE($3, last_name),
				    email      = COALESCE($4, email),
				    updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, req.FirstName, req.LastName, req.Email,
		))
		return err
	})

	if err != nil && IsUniqueViolation(err) {
		return user.User{}, user.ErrEmailAlreadyUsed
	}

	return u, err
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.update_password", func() error {
		tag, err = r.pool.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
			id, passwordHash,
		)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// SetResetCode overwrites any outstanding code. The expiry column is kept
// alongside the code but nothing reads it back for enforcement.
func (r *UsersRepo) SetResetCode(ctx context.Context, id, code string, expiry time.Time) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.set_reset_code", func() error {
		tag, err = r.pool.Exec(ctx,
			`UPDATE users SET reset_code = $2, reset_code_expiry = $3, updated_at = NOW() WHERE id = $1`,
			id, code, expiry,
		)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// ConsumeResetCode swaps in the new hash and clears the code in a single
// statement, so a code can be spent exactly once.
func (r *UsersRepo) ConsumeResetCode(ctx context.Context, id, passwordHash string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.consume_reset_code", func() error {
		tag, err = r.pool.Exec(ctx,
			`UPDATE users
				SET password_hash = $2,
				    reset_code = NULL,
				    reset_code_expiry = NULL,
				    updated_at = NOW()
			WHERE id = $1`,
			id, passwordHash,
		)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) ToggleAdmin(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.toggle_admin", func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET is_admin = NOT is_admin, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("users.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (r *UsersRepo) List(ctx context.Context, limit, offset int) ([]user.User, int, error) {
	var out []user.User
	total := 0

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+`, COUNT(*) OVER() AS total
			FROM users
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2`,
			limit, offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.User, 0, limit)

		for rows.Next() {
			var u user.User
			var t int

			err = rows.Scan(
				&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
				&u.IsAdmin, &u.ResetCode, &u.ResetCodeExp, &u.CreatedAt, &u.UpdatedAt,
				&t,
			)

			if err != nil {
				return err
			}

			total = t
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}
