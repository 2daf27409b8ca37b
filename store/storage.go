package store

import (
	"context"
	"errors"
	"fmt"

	"agenthub/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStorer persists front-end sessions and the sections they generated.
type SessionStorer interface {
	SaveSession(context.Context, types.SessionRecord) error
	GetSession(context.Context, uuid.UUID) (*types.SessionRecord, error)
	DeleteSession(context.Context, uuid.UUID) error
	SaveSections(context.Context, uuid.UUID, []types.Section) error
	ListSections(context.Context, uuid.UUID) ([]types.Section, error)
	Close() error
}

type PostgresStore struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, log *zap.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
		log:  log,
	}, nil
}

func (p *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*types.SessionRecord, error) {
	row := p.pool.QueryRow(ctx, `SELECT id, agent, mode, prompt, context, sources, state, cursor_pos, created_at, updated_at
		FROM sessions WHERE id = $1`, id)

	rec := &types.SessionRecord{}
	if err := row.Scan(
		&rec.ID,
		&rec.Agent,
		&rec.Mode,
		&rec.Prompt,
		&rec.Context,
		&rec.Sources,
		&rec.State,
		&rec.Cursor,
		&rec.CreatedAt,
		&rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		return nil, err
	}
	return rec, nil
}

func (p *PostgresStore) SaveSession(ctx context.Context, rec types.SessionRecord) error {
	query := `INSERT INTO sessions (id, agent, mode, prompt, context, sources, state, cursor_pos, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			mode = EXCLUDED.mode,
			prompt = EXCLUDED.prompt,
			context = EXCLUDED.context,
			sources = EXCLUDED.sources,
			state = EXCLUDED.state,
			cursor_pos = EXCLUDED.cursor_pos,
			updated_at = EXCLUDED.updated_at
			`
	_, err := p.pool.Exec(
		ctx,
		query,
		rec.ID,
		rec.Agent,
		rec.Mode,
		rec.Prompt,
		rec.Context,
		rec.Sources,
		rec.State,
		rec.Cursor,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	// sections go with the session through ON DELETE CASCADE
	_, err := p.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	return err
}

// SaveSections upserts every section of a session in one batch. position keeps
// the arrival order, ord the document order.
func (p *PostgresStore) SaveSections(ctx context.Context, sessionID uuid.UUID, sections []types.Section) error {
	query := `
    INSERT INTO sections (session_id, section_id, position, title, content, ord, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (session_id, section_id) DO UPDATE SET
        position = EXCLUDED.position,
        title = EXCLUDED.title,
        content = EXCLUDED.content,
        ord = EXCLUDED.ord,
        status = EXCLUDED.status
    `
	batch := &pgx.Batch{}
	for i, s := range sections {
		batch.Queue(query, sessionID, s.ID, i, s.Title, s.Content, s.Order, s.Status)
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("error saving sections: %w", err)
	}
	p.log.Debug("sections saved", zap.Stringer("session_id", sessionID), zap.Int("count", len(sections)))
	return nil
}

func (p *PostgresStore) ListSections(ctx context.Context, sessionID uuid.UUID) ([]types.Section, error) {
	rows, err := p.pool.Query(ctx, `SELECT section_id, title, content, ord, status
		FROM sections WHERE session_id = $1 ORDER BY position`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []types.Section
	for rows.Next() {
		var s types.Section
		if err := rows.Scan(&s.ID, &s.Title, &s.Content, &s.Order, &s.Status); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

func (p *PostgresStore) createSessionTables(ctx context.Context) error {

	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		agent TEXT NOT NULL,
		mode TEXT,
		prompt TEXT,
		context TEXT,
		sources JSONB,
		state TEXT NOT NULL,
		cursor_pos INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE,
		updated_at TIMESTAMP WITH TIME ZONE
	);

    CREATE TABLE IF NOT EXISTS sections (
        session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
        section_id TEXT NOT NULL,
        position INT NOT NULL,
        title TEXT NOT NULL,
        content TEXT NOT NULL,
        ord INT NOT NULL,
        status TEXT CHECK (status IN ('pending','generating','complete','editing')),
        PRIMARY KEY (session_id, section_id)
    );

	CREATE INDEX IF NOT EXISTS idx_sections_session ON sections(session_id, position);
    `
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createSessionTables(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.log.Info("Postgres connection pool is closed")
	}
	return nil
}
