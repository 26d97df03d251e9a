package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/observability"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Stage is one node of the evaluation DAG. Run writes exactly one slot of
// the shared state and reads only slots written by its dependencies.
type Stage struct {
	Name string
	Deps []string
	Run  func(ctx context.Context, st *domain.EvalState) error
}

// Scheduler executes a static stage table respecting dependency order.
// Stages whose dependencies are all complete run concurrently, bounded by
// Concurrency. The first failure cancels everything still pending while
// completed slots stay populated.
type Scheduler struct {
	Stages       []Stage
	Concurrency  int
	StageTimeout time.Duration
}

var tracer = otel.Tracer("pipeline")

// Run executes the table against state. It validates the table first:
// unknown dependencies and cycles are configuration errors, not runtime
// failures.
func (s *Scheduler) Run(ctx context.Context, state *domain.EvalState) error {
	if err := s.validate(); err != nil {
		return err
	}

	done := make(map[string]chan struct{}, len(s.Stages))
	for _, st := range s.Stages {
		done[st.Name] = make(chan struct{})
	}

	limit := s.Concurrency
	if limit <= 0 {
		limit = len(s.Stages)
	}
	sem := make(chan struct{}, limit)

	g, gctx := errgroup.WithContext(ctx)
	for _, stage := range s.Stages {
		stage := stage
		g.Go(func() error {
			for _, dep := range stage.Deps {
				select {
				case <-done[dep]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			if err := s.runStage(gctx, stage, state); err != nil {
				return err
			}
			close(done[stage.Name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if _, ok := err.(*domain.StageError); ok {
			return err
		}
		return &domain.StageError{Stage: "scheduler", Err: err}
	}
	return nil
}

func (s *Scheduler) runStage(ctx context.Context, stage Stage, state *domain.EvalState) error {
	runCtx := ctx
	var cancel context.CancelFunc
	if s.StageTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.StageTimeout)
		defer cancel()
	}

	runCtx, span := tracer.Start(runCtx, "pipeline.stage", trace.WithAttributes(
		attribute.String("stage", stage.Name),
		attribute.String("job_id", state.JobID),
	))
	defer span.End()

	start := time.Now()
	err := stage.Run(runCtx, state)
	observability.ObserveStage(stage.Name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		slog.Error("pipeline stage failed",
			slog.String("stage", stage.Name),
			slog.String("job_id", state.JobID),
			slog.Any("error", err))
		return &domain.StageError{Stage: stage.Name, Err: err}
	}
	slog.Debug("pipeline stage complete",
		slog.String("stage", stage.Name),
		slog.String("job_id", state.JobID),
		slog.Duration("took", time.Since(start)))
	return nil
}

// validate rejects unknown dependencies and cycles via Kahn's algorithm.
func (s *Scheduler) validate() error {
	indegree := make(map[string]int, len(s.Stages))
	dependents := make(map[string][]string)
	for _, st := range s.Stages {
		if _, dup := indegree[st.Name]; dup {
			return fmt.Errorf("%w: duplicate stage %q", domain.ErrInternal, st.Name)
		}
		indegree[st.Name] = len(st.Deps)
	}
	for _, st := range s.Stages {
		for _, dep := range st.Deps {
			if _, ok := indegree[dep]; !ok {
				return fmt.Errorf("%w: stage %q depends on unknown stage %q", domain.ErrInternal, st.Name, dep)
			}
			dependents[dep] = append(dependents[dep], st.Name)
		}
	}
	var ready []string
	for name, deg := range indegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	resolved := 0
	for len(ready) > 0 {
		name := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		resolved++
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	if resolved != len(s.Stages) {
		return fmt.Errorf("%w: stage table has a dependency cycle", domain.ErrInternal)
	}
	return nil
}
