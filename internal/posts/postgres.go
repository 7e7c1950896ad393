package posts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/blogcms/pkg/db"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository implements Repository with pgx.
type PostgresRepository struct {
	db DB
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const listPosts = `
SELECT p.id, p.title, p.created_at, p.thumbnail_url, u.first_name, u.last_name
FROM posts p
LEFT JOIN users u ON u.id = p.user_id
WHERE $1::uuid IS NULL OR p.user_id = $1
ORDER BY p.created_at DESC, p.id DESC`

func (r *PostgresRepository) List(ctx context.Context, owner *uuid.UUID) ([]ListItem, error) {
	rows, err := r.db.Query(ctx, listPosts, owner)
	if err != nil {
		return nil, fmt.Errorf("posts: list: %w", err)
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		var (
			it          ListItem
			first, last *string
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.CreatedAt, &it.ThumbnailURL, &first, &last); err != nil {
			return nil, fmt.Errorf("posts: scan: %w", err)
		}
		it.AuthorName = authorName(first, last)
		items = append(items, it)
	}
	return items, rows.Err()
}

const insertPost = `
INSERT INTO posts (title, description, thumbnail_url, slug, user_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

func (r *PostgresRepository) Create(ctx context.Context, p *Post) error {
	err := r.db.QueryRow(ctx, insertPost, p.Title, p.Description, p.ThumbnailURL, p.Slug, p.OwnerID).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "posts_slug_key") {
			return ErrSlugTaken
		}
		return fmt.Errorf("posts: create: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Post, error) {
	var p Post
	err := r.db.QueryRow(ctx, `
		SELECT id, title, description, thumbnail_url, slug, user_id, created_at
		FROM posts WHERE id = $1`, id).
		Scan(&p.ID, &p.Title, &p.Description, &p.ThumbnailURL, &p.Slug, &p.OwnerID, &p.CreatedAt)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("posts: get: %w", err)
	}
	return &p, nil
}

// Update overwrites title, description and thumbnail. Slug and owner are immutable.
func (r *PostgresRepository) Update(ctx context.Context, p *Post) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE posts SET title = $2, description = $3, thumbnail_url = $4
		WHERE id = $1`, p.ID, p.Title, p.Description, p.ThumbnailURL)
	if err != nil {
		return fmt.Errorf("posts: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("posts: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (*PublishedPost, error) {
	var (
		p           PublishedPost
		first, last *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT p.title, p.description, p.thumbnail_url, p.slug, p.created_at, u.first_name, u.last_name
		FROM posts p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.slug = $1`, slug).
		Scan(&p.Title, &p.Description, &p.ThumbnailURL, &p.Slug, &p.CreatedAt, &first, &last)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("posts: find by slug: %w", err)
	}
	p.AuthorName = authorName(first, last)
	return &p, nil
}
