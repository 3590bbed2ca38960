package imports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipocket/feature/inventory/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Pipeline is the run controller: it owns the adapter → validate →
// plan → execute → audit sequence and is the only component that knows
// whether a run is a preview or a commit.
type Pipeline struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewPipeline creates a run controller bound to storage.
func NewPipeline(db *gorm.DB, logger *zap.Logger) *Pipeline {
	return &Pipeline{db: db, logger: logger, now: time.Now}
}

// Run executes one import end to end. Every outcome returns the same
// RunResult shape; the returned error is reserved for infrastructure
// failures (storage unavailable, transaction failure), never for bad
// input.
//
// With dryRun set the write path is never entered: the plan is
// computed against storage exactly as an apply would, and storage row
// counts before and after the call are identical.
func (p *Pipeline) Run(ctx context.Context, adapter Adapter, inputs map[string][]byte, dryRun bool) (*RunResult, error) {
	result := &RunResult{
		RunID:    uuid.NewString(),
		Source:   adapter.Name(),
		Changes:  []RecordChange{},
		Errors:   []Issue{},
		Warnings: []Issue{},
	}
	log := p.logger.With(
		zap.String("run_id", result.RunID),
		zap.String("source", result.Source),
		zap.Bool("dry_run", dryRun),
	)
	log.Info("Import run started")

	model, parseWarnings, err := adapter.Parse(inputs)
	if err != nil {
		var parseErr *ParseError
		location := "import"
		if errors.As(err, &parseErr) {
			location = parseErr.Location
		}
		result.State = StateAborted
		result.Errors = append(result.Errors, errorIssue(location, err.Error()))
		log.Warn("Import run aborted at parse", zap.String("location", location), zap.Error(err))
		return result, nil
	}
	result.Warnings = append(result.Warnings, parseWarnings...)

	snap, err := LoadSnapshot(ctx, p.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory snapshot: %w", err)
	}

	validation := Validate(model, snap)
	result.Warnings = append(result.Warnings, validation.Warnings...)
	if !validation.IsValid() {
		// Any hard error aborts the whole batch before any write.
		result.State = StateAborted
		result.Errors = append(result.Errors, validation.Errors...)
		log.Warn("Import run aborted at validation", zap.Int("errors", len(result.Errors)))
		return result, nil
	}

	plan := BuildPlan(validation.Model, snap)
	result.Summary = plan.Summary
	result.Changes = plan.Changes
	result.Errors = append(result.Errors, plan.Errors...)

	if dryRun {
		result.State = StatePreviewed
		total := result.Summary.Total()
		log.Info("Import run previewed",
			zap.Int("would_create", total.Created),
			zap.Int("would_update", total.Updated),
			zap.Int("would_skip", total.Skipped),
		)
		return result, nil
	}

	if err := Execute(ctx, p.db, plan, snap); err != nil {
		return nil, fmt.Errorf("failed to apply import run: %w", err)
	}
	result.State = StateApplied

	if err := p.writeAuditSummary(ctx, result); err != nil {
		return nil, err
	}

	total := result.Summary.Total()
	log.Info("Import run applied",
		zap.Int("created", total.Created),
		zap.Int("updated", total.Updated),
		zap.Int("skipped", total.Skipped),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// writeAuditSummary records one audit row per committed run. Dry-runs
// and aborted runs never reach this.
func (p *Pipeline) writeAuditSummary(ctx context.Context, result *RunResult) error {
	total := result.Summary.Total()
	summary := models.ImportRunSummary{
		RunID:    result.RunID,
		Source:   result.Source,
		Action:   "APPLY",
		Created:  total.Created,
		Updated:  total.Updated,
		Skipped:  total.Skipped,
		Warnings: len(result.Warnings),
		Errors:   len(result.Errors),
		Changes: fmt.Sprintf(
			"Import apply source=%s; create=%d; update=%d; skip=%d; warnings=%d; errors=%d.",
			result.Source, total.Created, total.Updated, total.Skipped,
			len(result.Warnings), len(result.Errors),
		),
		CreatedAt: p.now().UTC(),
	}
	if err := p.db.WithContext(ctx).Create(&summary).Error; err != nil {
		return fmt.Errorf("failed to write import run summary: %w", err)
	}
	return nil
}
