package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// ResultRepo persists completed evaluation outcomes. The narrative lists and
// the full evidence bundle are stored as jsonb.
type ResultRepo struct{ Pool PgxPool }

// NewResultRepo constructs a ResultRepo with the given pool.
func NewResultRepo(p PgxPool) *ResultRepo { return &ResultRepo{Pool: p} }

// Upsert stores the result for a job, replacing any previous row.
func (r *ResultRepo) Upsert(ctx context.Context, res domain.Result) error {
	tracer := otel.Tracer("repo.results")
	ctx, span := tracer.Start(ctx, "results.Upsert")
	defer span.End()

	lists, err := json.Marshal(map[string][]string{
		"strengths":   res.Strengths,
		"weaknesses":  res.Weaknesses,
		"focus_areas": res.FocusAreas,
		"red_flags":   res.RedFlags,
	})
	if err != nil {
		return fmt.Errorf("op=result.upsert marshal lists: %w", err)
	}
	evaluation, err := json.Marshal(res.Evaluation)
	if err != nil {
		return fmt.Errorf("op=result.upsert marshal evaluation: %w", err)
	}

	q := `INSERT INTO results (job_id, decision, weighted_score, recommendation, lists, evaluation, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (job_id) DO UPDATE SET
  decision=EXCLUDED.decision,
  weighted_score=EXCLUDED.weighted_score,
  recommendation=EXCLUDED.recommendation,
  lists=EXCLUDED.lists,
  evaluation=EXCLUDED.evaluation`
	_, err = r.Pool.Exec(ctx, q, res.JobID, res.Decision, res.WeightedScore, res.Recommendation, lists, evaluation, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=result.upsert: %w", err)
	}
	return nil
}

// GetByJobID loads the result of a completed job.
func (r *ResultRepo) GetByJobID(ctx context.Context, jobID string) (domain.Result, error) {
	tracer := otel.Tracer("repo.results")
	ctx, span := tracer.Start(ctx, "results.GetByJobID")
	defer span.End()

	q := `SELECT job_id, decision, weighted_score, recommendation, lists, evaluation, created_at FROM results WHERE job_id=$1`
	row := r.Pool.QueryRow(ctx, q, jobID)
	var res domain.Result
	var lists, evaluation []byte
	if err := row.Scan(&res.JobID, &res.Decision, &res.WeightedScore, &res.Recommendation, &lists, &evaluation, &res.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Result{}, fmt.Errorf("op=result.get: %w", domain.ErrNotFound)
		}
		return domain.Result{}, fmt.Errorf("op=result.get: %w", err)
	}

	var decoded struct {
		Strengths  []string `json:"strengths"`
		Weaknesses []string `json:"weaknesses"`
		FocusAreas []string `json:"focus_areas"`
		RedFlags   []string `json:"red_flags"`
	}
	if err := json.Unmarshal(lists, &decoded); err != nil {
		return domain.Result{}, fmt.Errorf("op=result.get decode lists: %w", err)
	}
	res.Strengths = decoded.Strengths
	res.Weaknesses = decoded.Weaknesses
	res.FocusAreas = decoded.FocusAreas
	res.RedFlags = decoded.RedFlags
	if err := json.Unmarshal(evaluation, &res.Evaluation); err != nil {
		return domain.Result{}, fmt.Errorf("op=result.get decode evaluation: %w", err)
	}
	return res, nil
}
