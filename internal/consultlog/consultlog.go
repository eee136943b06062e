// Package consultlog keeps an audit trail of symptom analyses.
package consultlog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/SymptomDesk/internal/recommend"
)

// Consultation is one analysis outcome as stored in the audit log.
type Consultation struct {
	ID             uuid.UUID         `json:"id"`
	SessionID      string            `json:"sessionId"`
	Outcome        recommend.Outcome `json:"outcome"`
	Clusters       []string          `json:"clusters"`
	Medicines      []string          `json:"medicines"`
	RelevantTokens []string          `json:"relevantTokens"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// FromAnalysis summarizes an analysis without keeping the user's raw text.
func FromAnalysis(sessionID string, a recommend.Analysis) Consultation {
	meds := make([]string, 0, len(a.Recommendations))
	for _, r := range a.Recommendations {
		meds = append(meds, r.Medicine.Name)
	}
	return Consultation{
		ID:             uuid.New(),
		SessionID:      sessionID,
		Outcome:        a.Outcome,
		Clusters:       append([]string{}, a.Clusters...),
		Medicines:      meds,
		RelevantTokens: append([]string{}, a.RelevantTokens...),
		CreatedAt:      time.Now().UTC(),
	}
}

type Recorder interface {
	Record(ctx context.Context, c Consultation) error
}

// Nop drops every consultation.
type Nop struct{}

func (Nop) Record(context.Context, Consultation) error { return nil }

const schema = `
CREATE TABLE IF NOT EXISTS consultations (
	id              UUID PRIMARY KEY,
	session_id      TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	clusters        TEXT[] NOT NULL DEFAULT '{}',
	medicines       TEXT[] NOT NULL DEFAULT '{}',
	relevant_tokens TEXT[] NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS consultations_session_idx ON consultations (session_id, created_at);
`

type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*PostgresRecorder, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &PostgresRecorder{pool: pool}, nil
}

func (p *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create consultations schema: %w", err)
	}
	return nil
}

func (p *PostgresRecorder) Record(ctx context.Context, c Consultation) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO consultations (id, session_id, outcome, clusters, medicines, relevant_tokens, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.SessionID, string(c.Outcome), c.Clusters, c.Medicines, c.RelevantTokens, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

// Recent returns the newest consultations of a session, newest first.
func (p *PostgresRecorder) Recent(ctx context.Context, sessionID string, limit int) ([]Consultation, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, session_id, outcome, clusters, medicines, relevant_tokens, created_at
		   FROM consultations
		  WHERE session_id = $1
		  ORDER BY created_at DESC
		  LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query consultations: %w", err)
	}
	defer rows.Close()

	out := []Consultation{}
	for rows.Next() {
		var c Consultation
		var outcome string
		if err := rows.Scan(&c.ID, &c.SessionID, &outcome, &c.Clusters, &c.Medicines, &c.RelevantTokens, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consultation: %w", err)
		}
		c.Outcome = recommend.Outcome(outcome)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *PostgresRecorder) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresRecorder) Close() {
	p.pool.Close()
}
