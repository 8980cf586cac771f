package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/pkg/utils"
)

// PostgresStore implements Store on Postgres.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings a Postgres connection.
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection (used by tests).
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate runs the goose migrations.
func (s *PostgresStore) Migrate() error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "internal/store/migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the underlying connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// FindByExternalID resolves a post id by its external id, returning 0 when
// absent.
func (s *PostgresStore) FindByExternalID(ctx context.Context, postType models.PostType, externalID string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM posts WHERE post_type = $1 AND external_id = $2",
		postType, externalID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up post by external id: %w", err)
	}
	return id, nil
}

// GetPost retrieves a post by id.
func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	err := s.db.QueryRowContext(ctx, `
		SELECT id, post_type, post_status, title, content, slug, external_id, created_at, updated_at
		FROM posts WHERE id = $1`, id).Scan(
		&p.ID, &p.Type, &p.Status, &p.Title, &p.Content, &p.Slug, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &p, nil
}

// CreatePost inserts a new post and returns its id.
func (s *PostgresStore) CreatePost(ctx context.Context, post *models.Post) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (post_type, post_status, title, content, slug, external_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		post.Type, post.Status, post.Title, post.Content, post.Slug, post.ExternalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create post: %w", err)
	}
	post.ID = id
	return id, nil
}

// UpdatePost updates a post's core fields (status, slug, content). The
// title is deliberately not overwritten here: title changes go through the
// field diff path like any other field.
func (s *PostgresStore) UpdatePost(ctx context.Context, post *models.Post) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET post_status = $1, slug = $2, content = $3, updated_at = NOW()
		WHERE id = $4`,
		post.Status, post.Slug, post.Content, post.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("post not found: %d", post.ID)
	}
	return nil
}

// DeletePost hard-deletes a post; meta and term relationships cascade.
func (s *PostgresStore) DeletePost(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// ListPosts retrieves all posts of a type.
func (s *PostgresStore) ListPosts(ctx context.Context, postType models.PostType) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_type, post_status, title, content, slug, external_id, created_at, updated_at
		FROM posts WHERE post_type = $1 ORDER BY id`, postType)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// ListExternalIDsByStatus retrieves the external ids of all posts of a type
// in a given status.
func (s *PostgresStore) ListExternalIDsByStatus(ctx context.Context, postType models.PostType, status models.PostStatus) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT external_id FROM posts WHERE post_type = $1 AND post_status = $2",
		postType, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list external ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetField retrieves a meta value, empty string when absent.
func (s *PostgresStore) GetField(ctx context.Context, id int64, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT meta_value FROM post_meta WHERE post_id = $1 AND meta_key = $2",
		id, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get field: %w", err)
	}
	return value, nil
}

// SetField upserts a meta value.
func (s *PostgresStore) SetField(ctx context.Context, id int64, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_meta (post_id, meta_key, meta_value)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`,
		id, key, value)
	if err != nil {
		return fmt.Errorf("failed to set field %s: %w", key, err)
	}
	return nil
}

// GetFields retrieves all meta values for a post.
func (s *PostgresStore) GetFields(ctx context.Context, id int64) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT meta_key, meta_value FROM post_meta WHERE post_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get fields: %w", err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		fields[k] = v
	}
	return fields, rows.Err()
}

// SetTerms associates the named terms with a post under a taxonomy,
// creating terms as needed. With appendTerms false, existing associations
// in the taxonomy are replaced.
func (s *PostgresStore) SetTerms(ctx context.Context, id int64, taxonomy string, terms []string, appendTerms bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if !appendTerms {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM term_relationships
			WHERE post_id = $1 AND term_id IN (SELECT id FROM terms WHERE taxonomy = $2)`,
			id, taxonomy)
		if err != nil {
			return fmt.Errorf("failed to clear terms: %w", err)
		}
	}

	for _, name := range terms {
		slug := utils.Slugify(name)
		if slug == "" {
			continue
		}

		var termID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO terms (taxonomy, name, slug)
			VALUES ($1, $2, $3)
			ON CONFLICT (taxonomy, slug) DO UPDATE SET name = terms.name
			RETURNING id`,
			taxonomy, name, slug).Scan(&termID)
		if err != nil {
			return fmt.Errorf("failed to upsert term %s: %w", name, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO term_relationships (post_id, term_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			id, termID)
		if err != nil {
			return fmt.Errorf("failed to relate term %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// GetTerms retrieves the term names associated with a post in a taxonomy.
func (s *PostgresStore) GetTerms(ctx context.Context, id int64, taxonomy string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name FROM terms t
		JOIN term_relationships tr ON tr.term_id = t.id
		WHERE tr.post_id = $1 AND t.taxonomy = $2
		ORDER BY t.name`, id, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to get terms: %w", err)
	}
	defer rows.Close()

	var terms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		terms = append(terms, name)
	}
	return terms, rows.Err()
}

// RemoveTerm removes one term association from a post.
func (s *PostgresStore) RemoveTerm(ctx context.Context, id int64, taxonomy, slug string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM term_relationships
		WHERE post_id = $1 AND term_id IN (SELECT id FROM terms WHERE taxonomy = $2 AND slug = $3)`,
		id, taxonomy, slug)
	if err != nil {
		return fmt.Errorf("failed to remove term: %w", err)
	}
	return nil
}

// ListPostsWithTerm retrieves all posts of a type carrying a term.
func (s *PostgresStore) ListPostsWithTerm(ctx context.Context, postType models.PostType, taxonomy, slug string) ([]*models.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.post_type, p.post_status, p.title, p.content, p.slug, p.external_id, p.created_at, p.updated_at
		FROM posts p
		JOIN term_relationships tr ON tr.post_id = p.id
		JOIN terms t ON t.id = tr.term_id
		WHERE p.post_type = $1 AND t.taxonomy = $2 AND t.slug = $3
		ORDER BY p.id`, postType, taxonomy, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts with term: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]*models.Post, error) {
	var posts []*models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Type, &p.Status, &p.Title, &p.Content, &p.Slug, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}
