package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// UploadRepo persists and loads resolved document texts.
type UploadRepo struct{ Pool PgxPool }

// NewUploadRepo constructs an UploadRepo with the given pool.
func NewUploadRepo(p PgxPool) *UploadRepo { return &UploadRepo{Pool: p} }

// Create stores a new upload and returns its id (generates one if empty).
func (r *UploadRepo) Create(ctx context.Context, u domain.Upload) (string, error) {
	tracer := otel.Tracer("repo.uploads")
	ctx, span := tracer.Start(ctx, "uploads.Create")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.sql.table", "uploads"),
	)
	id := u.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO uploads (id, kind, text, source_name, mime, size, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.Pool.Exec(ctx, q, id, u.Kind, u.Text, u.SourceName, u.MIME, u.Size, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("op=upload.create: %w", err)
	}
	return id, nil
}

// Get loads an upload by id.
func (r *UploadRepo) Get(ctx context.Context, id string) (domain.Upload, error) {
	tracer := otel.Tracer("repo.uploads")
	ctx, span := tracer.Start(ctx, "uploads.Get")
	defer span.End()
	q := `SELECT id, kind, text, source_name, mime, size, created_at FROM uploads WHERE id=$1`
	row := r.Pool.QueryRow(ctx, q, id)
	var u domain.Upload
	if err := row.Scan(&u.ID, &u.Kind, &u.Text, &u.SourceName, &u.MIME, &u.Size, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Upload{}, fmt.Errorf("op=upload.get: %w", domain.ErrNotFound)
		}
		return domain.Upload{}, fmt.Errorf("op=upload.get: %w", err)
	}
	return u, nil
}
