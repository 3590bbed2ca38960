package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ipocket/feature/imports"
	"ipocket/feature/inventory/models"
)

// JobWork runs one connector import and returns its result.
type JobWork func(ctx context.Context) (*imports.RunResult, error)

// Runner executes connector imports in the background and tracks
// their progress in the connector_jobs table.
type Runner struct {
	db      *gorm.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewRunner creates a background job runner.
func NewRunner(db *gorm.DB, logger *zap.Logger) *Runner {
	return &Runner{
		db:      db,
		logger:  logger,
		timeout: 10 * time.Minute,
	}
}

// Enqueue records a queued job and starts the work in a goroutine.
// The returned job snapshot carries the ID clients poll with. The
// work runs on a fresh context so it survives the request that
// triggered it.
func (r *Runner) Enqueue(ctx context.Context, connector string, dryRun bool, work JobWork) (*models.ConnectorJob, error) {
	job := &models.ConnectorJob{
		ID:        uuid.New().String(),
		Connector: connector,
		Status:    models.JobStatusQueued,
		DryRun:    dryRun,
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, fmt.Errorf("failed to create connector job: %w", err)
	}

	go r.run(job.ID, connector, work)

	return job, nil
}

// Job loads a job by ID.
func (r *Runner) Job(ctx context.Context, id string) (*models.ConnectorJob, error) {
	var job models.ConnectorJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Runner) run(jobID, connector string, work JobWork) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	logger := r.logger.With(zap.String("job_id", jobID), zap.String("connector", connector))

	if err := r.setStatus(ctx, jobID, models.JobStatusRunning); err != nil {
		logger.Error("Failed to mark connector job running", zap.Error(err))
		return
	}
	logger.Info("Connector job started")

	result, err := work(ctx)
	if err != nil {
		logger.Error("Connector job failed", zap.Error(err))
		r.finish(ctx, jobID, models.JobStatusFailed, nil, err.Error())
		return
	}

	status := models.JobStatusDone
	message := ""
	if result.State == imports.StateAborted {
		status = models.JobStatusFailed
		message = firstIssueMessage(result.Errors)
	}
	r.finish(ctx, jobID, status, result, message)
	logger.Info("Connector job finished",
		zap.String("status", status),
		zap.String("state", string(result.State)))
}

func (r *Runner) setStatus(ctx context.Context, jobID, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.ConnectorJob{}).
		Where("id = ?", jobID).
		Update("status", status).Error
}

func (r *Runner) finish(ctx context.Context, jobID, status string, result *imports.RunResult, message string) {
	updates := map[string]interface{}{
		"status": status,
		"error":  message,
	}
	if result != nil {
		total := result.Summary.Total()
		updates["created_count"] = total.Created
		updates["updated_count"] = total.Updated
		updates["skipped_count"] = total.Skipped
		updates["warning_count"] = len(result.Warnings)
		updates["error_count"] = len(result.Errors)
	}
	err := r.db.WithContext(ctx).
		Model(&models.ConnectorJob{}).
		Where("id = ?", jobID).
		Updates(updates).Error
	if err != nil {
		r.logger.Error("Failed to finalize connector job",
			zap.String("job_id", jobID), zap.Error(err))
	}
}

func firstIssueMessage(issues []imports.Issue) string {
	if len(issues) == 0 {
		return "import aborted"
	}
	first := issues[0]
	if first.Location != "" {
		return fmt.Sprintf("%s: %s", first.Location, first.Message)
	}
	return first.Message
}
