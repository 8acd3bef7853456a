package services

import (
	"context"
	"errors"
	"fmt"

	"keswan/internal/amqp"
	"keswan/internal/core"
	"keswan/internal/log"
	"keswan/internal/metrics"
	"keswan/internal/report"
)

// ErrJobsDisabled is returned when no job queue is configured.
var ErrJobsDisabled = errors.New("export jobs are not configured")

// JobPublisher enqueues export jobs.
type JobPublisher interface {
	PublishExportJob(ctx context.Context, msg *amqp.ExportJobMessage) error
}

// ExportJobs turns export requests into queued jobs for the worker.
type ExportJobs struct {
	publisher     JobPublisher
	requirePeriod bool
	metrics       *metrics.Metrics
	logger        *log.Logger
}

// NewExportJobs wires the job producer. A nil publisher disables jobs.
func NewExportJobs(publisher JobPublisher, requirePeriod bool, m *metrics.Metrics, logger *log.Logger) *ExportJobs {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportJobs{
		publisher:     publisher,
		requirePeriod: requirePeriod,
		metrics:       m,
		logger:        logger.WithComponent(log.ComponentAMQP),
	}
}

// Enqueue validates req and publishes it. The returned id identifies the
// job in worker logs.
func (j *ExportJobs) Enqueue(ctx context.Context, req ExportRequest) (jobID string, err error) {
	if j == nil || j.publisher == nil {
		return "", ErrJobsDisabled
	}
	if j.requirePeriod && !req.Criteria.HasPeriod() {
		return "", ErrPeriodRequired
	}
	if _, err := ParseReportKind(string(req.Kind)); err != nil {
		return "", err
	}
	defer func() { j.metrics.ExportJob("enqueue", err) }()

	msg := MessageFromRequest(req)
	if err := j.publisher.PublishExportJob(ctx, msg); err != nil {
		return "", fmt.Errorf("enqueue export job: %w", err)
	}
	return msg.JobID, nil
}

// MessageFromRequest builds the queue message for req.
func MessageFromRequest(req ExportRequest) *amqp.ExportJobMessage {
	msg := amqp.NewExportJobMessage(string(req.Kind), req.Criteria.Period.Year, req.Criteria.Period.Month)
	msg.Query = req.Criteria.Query
	msg.Dimension = string(req.Dimension)
	msg.Weighting = string(req.Weighting)
	return msg
}

// RequestFromMessage is the inverse of MessageFromRequest. Jobs carry no
// output format; the worker publishes to a spreadsheet.
func RequestFromMessage(msg *amqp.ExportJobMessage) (ExportRequest, error) {
	kind, err := ParseReportKind(msg.Kind)
	if err != nil {
		return ExportRequest{}, err
	}
	period := core.Period{Year: msg.Year, Month: msg.Month}
	if err := period.Validate(); err != nil {
		return ExportRequest{}, err
	}
	req := ExportRequest{
		Kind:     kind,
		Criteria: report.Criteria{Period: period, Query: msg.Query},
	}
	if msg.Dimension != "" {
		if req.Dimension, err = report.ParseDimension(msg.Dimension); err != nil {
			return ExportRequest{}, err
		}
	}
	if req.Weighting, err = report.ParseWeighting(msg.Weighting); err != nil {
		return ExportRequest{}, err
	}
	return req, nil
}
