package video

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const videoColumns = `video_id, title, description, visibility, thumbnail_url, video_url,
	duration_seconds, owner_user_id, views, created_at, updated_at`

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, record *VideoRecord) error {
	query := `INSERT INTO videos (` + videoColumns + `)
		VALUES (:video_id, :title, :description, :visibility, :thumbnail_url, :video_url,
			:duration_seconds, :owner_user_id, :views, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, videoID string) (*VideoRecord, error) {
	var record VideoRecord
	err := r.db.GetContext(ctx, &record, `SELECT `+videoColumns+` FROM videos WHERE video_id = $1`, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &record, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerUserID string, includePrivate bool, titleQuery string) ([]*VideoRecord, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE owner_user_id = $1
		  AND ($2 OR visibility = 'public')
		  AND ($3 = '' OR title ILIKE '%' || $3 || '%' ESCAPE '\')
		ORDER BY created_at DESC`

	records := []*VideoRecord{}
	if err := r.db.SelectContext(ctx, &records, query, ownerUserID, includePrivate, escapeLike(titleQuery)); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return records, nil
}

func (r *PostgresRepository) IncrementViews(ctx context.Context, videoID string) (int64, error) {
	var views int64
	err := r.db.QueryRowxContext(ctx,
		`UPDATE videos SET views = views + 1 WHERE video_id = $1 RETURNING views`, videoID,
	).Scan(&views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment views: %w", err)
	}
	return views, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern escaped with '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
