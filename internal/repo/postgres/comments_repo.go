package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kharelcodes/bloghub/internal/domain/comment"
	"github.com/kharelcodes/bloghub/internal/observability"
)

type CommentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCommentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CommentsRepo {
	return &CommentsRepo{pool: pool, prom: prom}
}

func (r *CommentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *CommentsRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

// CreateTx inserts the comment inside the caller's transaction, so the
// notification job enqueue commits or rolls back together with it. A reply's
// parent must sit on the same blog.
func (r *CommentsRepo) CreateTx(ctx context.Context, tx pgx.Tx, c comment.Comment) (comment.Comment, error) {
	if c.ParentID != nil {
		var parentBlogID string

		err := r.observe("comments.check_parent", func() error {
			return tx.QueryRow(ctx,
				`SELECT blog_id FROM comments WHERE id = $1`,
				*c.ParentID,
			).Scan(&parentBlogID)
		})

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return comment.Comment{}, comment.ErrParentInvalid
			}
			return comment.Comment{}, err
		}

		if parentBlogID != c.BlogID {
			return comment.Comment{}, comment.ErrParentInvalid
		}
	}

	err := r.observe("comments.create_tx", func() error {
		_, err := tx.Exec(ctx,
			`INSERT INTO comments (id, blog_id, user_id, parent_id, content, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			c.ID, c.BlogID, c.UserID, c.ParentID, c.Content, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return comment.Comment{}, err
	}

	return c, nil
}

func (r *CommentsRepo) GetByID(ctx context.Context, id string) (comment.Comment, error) {
	var c comment.Comment

	err := r.observe("comments.get_by_id", func() error {
		return r.pool.QueryRow(ctx, `
			SELECT c.id, c.blog_id, c.user_id, c.parent_id, c.content,
			       u.id, u.first_name, u.last_name, u.email,
			       c.created_at, c.updated_at
			FROM comments c
			JOIN users u ON u.id = c.user_id
			WHERE c.id = $1`,
			id,
		).Scan(
			&c.ID, &c.BlogID, &c.UserID, &c.ParentID, &c.Content,
			&c.Author.ID, &c.Author.FirstName, &c.Author.LastName, &c.Author.Email,
			&c.CreatedAt, &c.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return comment.Comment{}, comment.ErrNotFound
		}
		return comment.Comment{}, err
	}

	return c, nil
}

func (r *CommentsRepo) ListByBlog(ctx context.Context, blogID string) ([]comment.Comment, error) {
	var out []comment.Comment

	err := r.observe("comments.list_by_blog", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT c.id, c.blog_id, c.user_id, c.parent_id, c.content,
			       u.id, u.first_name, u.last_name, u.email,
			       c.created_at, c.updated_at
			FROM comments c
			JOIN users u ON u.id = c.user_id
			WHERE c.blog_id = $1
			ORDER BY c.created_at ASC, c.id ASC`,
			blogID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]comment.Comment, 0)

		for rows.Next() {
			var c comment.Comment

			err = rows.Scan(
				&c.ID, &c.BlogID, &c.UserID, &c.ParentID, &c.Content,
				&c.Author.ID, &c.Author.FirstName, &c.Author.LastName, &c.Author.Email,
				&c.CreatedAt, &c.UpdatedAt,
			)

			if err != nil {
				return err
			}

			out = append(out, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *CommentsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("comments.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return comment.ErrNotFound
	}

	return nil
}
