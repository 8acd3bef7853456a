// Package worker runs the background side of keswan: rendering queued
// export jobs into the shared spreadsheet and refreshing reference lists.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"keswan/internal/amqp"
	"keswan/internal/export"
	"keswan/internal/log"
	"keswan/internal/metrics"
	"keswan/internal/services"
	"keswan/internal/sheets"
)

const maxBackoff = 30 * time.Second

// Workbooks lays out reports. *services.ReportService implements it.
type Workbooks interface {
	Workbook(ctx context.Context, req services.ExportRequest) (*export.Workbook, string, error)
}

// Consumer delivers queued export jobs.
type Consumer interface {
	ConsumeExportJobs(ctx context.Context, handler func(context.Context, *amqp.ExportJobMessage) error) error
	Reconnect() error
}

// ExportWorker renders export jobs and publishes them as spreadsheet tabs.
type ExportWorker struct {
	reports   Workbooks
	publisher sheets.WorkbookPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	backoff   func(attempt int) time.Duration
}

func NewExportWorker(reports Workbooks, publisher sheets.WorkbookPublisher, m *metrics.Metrics, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		reports:   reports,
		publisher: publisher,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentWorker),
		backoff:   backoff,
	}
}

// HandleExportJob processes a single export job message. Jobs that can
// never succeed are marked with amqp.ErrDiscard.
func (w *ExportWorker) HandleExportJob(ctx context.Context, msg *amqp.ExportJobMessage) (err error) {
	defer func() { w.metrics.ExportJob("process", err) }()

	req, err := services.RequestFromMessage(msg)
	if err != nil {
		return fmt.Errorf("job %s: %w: %w", msg.JobID, amqp.ErrDiscard, err)
	}

	w.logger.InfoContext(ctx, "Processing export job",
		log.FieldJobID, msg.JobID,
		log.FieldReportKind, msg.Kind,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month)

	wb, name, err := w.reports.Workbook(ctx, req)
	if errors.Is(err, services.ErrPeriodRequired) || errors.Is(err, services.ErrUnknownKind) {
		return fmt.Errorf("job %s: %w: %w", msg.JobID, amqp.ErrDiscard, err)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	ref, err := w.publisher.Publish(ctx, name, wb)
	if err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}

	w.logger.InfoContext(ctx, "Export job published",
		log.FieldJobID, msg.JobID,
		log.FieldSheetsRef, ref,
		"sheets", len(wb.Sheets))
	return nil
}

// Run consumes jobs until ctx ends, reconnecting with exponential backoff
// whenever the broker drops the delivery channel.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	attempt := 0
	for {
		err := consumer.ConsumeExportJobs(ctx, w.HandleExportJob)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.WarnContext(ctx, "Export job consumption stopped", log.FieldError, errString(err))

		for {
			delay := w.backoff(attempt)
			attempt++
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if err := consumer.Reconnect(); err != nil {
				w.logger.WarnContext(ctx, "Reconnect failed",
					log.FieldError, err.Error(),
					"attempt", attempt)
				continue
			}
			attempt = 0
			break
		}
	}
}

// backoff returns 1s, 2s, 4s, ... capped at maxBackoff.
func backoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
