package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kharelcodes/bloghub/internal/domain/blog"
	"github.com/kharelcodes/bloghub/internal/observability"
)

type BlogsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewBlogsRepo(pool *pgxpool.Pool, prom *observability.Prom) *BlogsRepo {
	return &BlogsRepo{pool: pool, prom: prom}
}

func (r *BlogsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const blogSelect = `
	SELECT b.id, b.user_id, b.title, b.content, b.image_url,
	       u.id, u.first_name, u.last_name, u.email,
	       b.created_at, b.updated_at
	FROM blogs b
	JOIN users u ON u.id = b.user_id
`

func scanBlog(row pgx.Row) (blog.Blog, error) {
	var b blog.Blog

	err := row.Scan(
		&b.ID, &b.UserID, &b.Title, &b.Content, &b.ImageURL,
		&b.Author.ID, &b.Author.FirstName, &b.Author.LastName, &b.Author.Email,
		&b.CreatedAt, &b.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return blog.Blog{}, blog.ErrNotFound
		}
		return blog.Blog{}, err
	}

	return b, nil
}

func (r *BlogsRepo) Create(ctx context.Context, b blog.Blog) (blog.Blog, error) {
	err := r.observe("blogs.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO blogs (id, user_id, title, content, image_url, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			b.ID, b.UserID, b.Title, b.Content, b.ImageURL, b.CreatedAt, b.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return blog.Blog{}, err
	}

	return b, nil
}

func (r *BlogsRepo) GetByID(ctx context.Context, id string) (blog.Blog, error) {
	var b blog.Blog
	var err error

	err = r.observe("blogs.get_by_id", func() error {
		b, err = scanBlog(r.pool.QueryRow(ctx, blogSelect+` WHERE b.id = $1`, id))
		return err
	})

	return b, err
}

// List returns newest-first pages plus the total count for the filter.
// Title filtering is a case-insensitive substring match.
func (r *BlogsRepo) List(ctx context.Context, f blog.ListFilter) ([]blog.Blog, int, error) {
	var out []blog.Blog
	total := 0

	offset := (f.Page - 1) * f.Limit

	query := `
	SELECT b.id, b.user_id, b.title, b.content, b.image_url,
	       u.id, u.first_name, u.last_name, u.email,
	       b.created_at, b.updated_at,
	       COUNT(*) OVER() AS total
	FROM blogs b
	JOIN users u ON u.id = b.user_id
	`

	var args []interface{}
	argsPosition := 1

	if f.Title != nil {
		query += ` WHERE b.title ILIKE '%' || $1 || '%'`
		args = append(args, *f.Title)
		argsPosition++
	}

	// stable ordering for pagination, newest first
	query += ` ORDER BY b.created_at DESC, b.id DESC`
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argsPosition, argsPosition+1)

	args = append(args, f.Limit, offset)

	err := r.observe("blogs.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]blog.Blog, 0, f.Limit)

		for rows.Next() {
			var b blog.Blog
			var t int

			err = rows.Scan(
				&b.ID, &b.UserID, &b.Title, &b.Content, &b.ImageURL,
				&b.Author.ID, &b.Author.FirstName, &b.Author.LastName, &b.Author.Email,
				&b.CreatedAt, &b.UpdatedAt,
				&t,
			)

			if err != nil {
				return err
			}

			total = t
			out = append(out, b)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (r *BlogsRepo) Update(ctx context.Context, id string, req blog.UpdateBlogRequest) (blog.Blog, error) {
	var b blog.Blog
	var err error

	err = r.observe("blogs.update", func() error {
		b, err = scanBlog(r.pool.QueryRow(ctx,
			`UPDATE blogs b
				SET title      = COALESCE($2, title),
				    content    = COALESCE($3, content),
				    image_url  = COALESCE($4, image_url),
				    updated_at = NOW()
			FROM users u
			WHERE b.id = $1 AND u.id = b.user_id
			RETURNING b.id, b.user_id, b.title, b.content, b.image_url,
			          u.id, u.first_name, u.last_name, u.email,
			          b.created_at, b.updated_at`,
			id, req.Title, req.Content, req.ImageURL,
		))
		return err
	})

	return b, err
}

func (r *BlogsRepo) SetImageURL(ctx context.Context, id, imageURL string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("blogs.set_image_url", func() error {
		tag, err = r.pool.Exec(ctx,
			`UPDATE blogs SET image_url = $2, updated_at = NOW() WHERE id = $1`,
			id, imageURL,
		)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrNotFound
	}
	return nil
}

func (r *BlogsRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	err = r.observe("blogs.delete", func() error {
		tag, err = r.pool.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return blog.ErrNotFound
	}

	return nil
}
