package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"studi-rag/internal/config"
	"studi-rag/internal/models"
)

type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID           string    `bun:"id,pk"`
	OwnerID      string    `bun:"owner_id,notnull"`
	Status       string    `bun:"status,notnull"`
	IndexVersion int       `bun:"index_version,notnull,default:0"`
	LastError    string    `bun:"last_error"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

type shareRow struct {
	bun.BaseModel `bun:"table:document_shares,alias:s"`

	DocumentID string `bun:"document_id,pk"`
	UserID     string `bun:"user_id,pk"`
}

// PG is the bun-backed Store for Postgres/Supabase.
type PG struct {
	db *bun.DB
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	)), nil
}

func NewPG(sqldb *sql.DB, debug bool) *PG {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &PG{db: db}
}

// InitDB creates the pipeline's tables when they do not exist yet.
func InitDB(ctx context.Context, s *PG) error {
	if _, err := s.db.NewCreateTable().Model((*documentRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewCreateTable().Model((*shareRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *PG) Close() error { return s.db.Close() }

func (s *PG) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	row := &documentRow{
		ID:           doc.ID,
		OwnerID:      doc.OwnerID,
		Status:       string(doc.Status),
		IndexVersion: doc.IndexVersion,
		LastError:    doc.LastError,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("last_error = EXCLUDED.last_error").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *PG) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := new(documentRow)
	err := s.db.NewSelect().Model(row).Where("d.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, models.ErrDocumentNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (s *PG) ListOwnedAndShared(ctx context.Context, requesterID string) ([]*models.Document, error) {
	var rows []documentRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("d.owner_id = ?", requesterID).
		WhereOr("d.id IN (SELECT document_id FROM document_shares WHERE user_id = ?)", requesterID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	docs := make([]*models.Document, len(rows))
	for i := range rows {
		docs[i] = rows[i].toModel()
	}
	return docs, nil
}

func (s *PG) UpdateStatus(ctx context.Context, id string, status models.DocumentStatus, lastError string) error {
	res, err := s.db.NewUpdate().
		Model((*documentRow)(nil)).
		Set("status = ?", string(status)).
		Set("last_error = ?", lastError).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(statusesAllowing(status))).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.requireTransition(ctx, res, id)
}

func (s *PG) CommitIndexed(ctx context.Context, id string, version int) error {
	res, err := s.db.NewUpdate().
		Model((*documentRow)(nil)).
		Set("status = ?", string(models.StatusIndexed)).
		Set("index_version = ?", version).
		Set("last_error = ''").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status IN (?)", bun.In(statusesAllowing(models.StatusIndexed))).
		Exec(ctx)
	if err != nil {
		return err
	}
	return s.requireTransition(ctx, res, id)
}

func (s *PG) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().Model((*shareRow)(nil)).Where("document_id = ?", id).Exec(ctx); err != nil {
		return err
	}
	_, err := s.db.NewDelete().Model((*documentRow)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (s *PG) ShareDocument(ctx context.Context, documentID, userID string) error {
	_, err := s.db.NewInsert().
		Model(&shareRow{DocumentID: documentID, UserID: userID}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return err
}

// requireTransition resolves a zero-row guarded update: either the row
// does not exist, or its current status is not a legal predecessor.
func (s *PG) requireTransition(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if _, err := s.GetDocument(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%s: %w", id, models.ErrInvalidTransition)
}

func statusesAllowing(next models.DocumentStatus) []string {
	all := []models.DocumentStatus{
		models.StatusPending, models.StatusIndexing, models.StatusIndexed, models.StatusFailed,
	}
	var from []string
	for _, s := range all {
		if s.CanTransitionTo(next) {
			from = append(from, string(s))
		}
	}
	return from
}

func (r *documentRow) toModel() *models.Document {
	return &models.Document{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Status:       models.DocumentStatus(r.Status),
		IndexVersion: r.IndexVersion,
		LastError:    r.LastError,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
