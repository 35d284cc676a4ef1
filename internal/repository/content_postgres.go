package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/vizora/signage/internal/domain"
)

// psql is a Squirrel StatementBuilder configured for PostgreSQL
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var contentColumns = []string{"id", "name", "type", "status", "metadata", "created_at", "updated_at"}

type contentRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewContentRepository creates a PostgreSQL content repository
func NewContentRepository(db *sql.DB) domain.ContentRepository {
	return &contentRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContent(row rowScanner) (*domain.ContentRecord, error) {
	var content domain.ContentRecord
	var metadata []byte

	if err := row.Scan(
		&content.ID,
		&content.Name,
		&content.Type,
		&content.Status,
		&metadata,
		&content.CreatedAt,
		&content.UpdatedAt,
	); err != nil {
		return nil, err
	}

	// other content types keep their own metadata shape
	if content.IsTemplate() && len(metadata) > 0 {
		var meta domain.TemplateMetadata
		if err := meta.Scan(metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template metadata: %w", err)
		}
		content.Metadata = &meta
	}

	return &content, nil
}

func (r *contentRepository) FindTemplates(ctx context.Context) ([]*domain.ContentRecord, error) {
	query, args, err := psql.
		Select(contentColumns...).
		From("content").
		Where(sq.Eq{"type": domain.ContentTypeTemplate, "status": domain.ContentStatusActive}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.ContentRecord
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}

	return templates, nil
}

func (r *contentRepository) FindByID(ctx context.Context, id string) (*domain.ContentRecord, error) {
	query, args, err := psql.
		Select(contentColumns...).
		From("content").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	content, err := scanContent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.ErrNotFound{Entity: "Content", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return content, nil
}

func (r *contentRepository) Create(ctx context.Context, content *domain.ContentRecord) error {
	now := r.now().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	content.UpdatedAt = now

	query, args, err := psql.
		Insert("content").
		Columns(contentColumns...).
		Values(
			content.ID,
			content.Name,
			content.Type,
			content.Status,
			content.Metadata,
			content.CreatedAt,
			content.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}
	return nil
}

func (r *contentRepository) Update(ctx context.Context, content *domain.ContentRecord) error {
	content.UpdatedAt = r.now().UTC()

	query, args, err := psql.
		Update("content").
		Set("name", content.Name).
		Set("status", content.Status).
		Set("metadata", content.Metadata).
		Set("updated_at", content.UpdatedAt).
		Where(sq.Eq{"id": content.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	return r.execUpdate(ctx, content.ID, query, args)
}

func (r *contentRepository) UpdateMetadata(ctx context.Context, id string, metadata *domain.TemplateMetadata) error {
	query, args, err := psql.
		Update("content").
		Set("metadata", metadata).
		Set("updated_at", r.now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	return r.execUpdate(ctx, id, query, args)
}

func (r *contentRepository) execUpdate(ctx context.Context, id, query string, args []interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return &domain.ErrNotFound{Entity: "Content", ID: id}
	}
	return nil
}
