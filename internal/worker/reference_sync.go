package worker

import (
	"context"
	"fmt"
	"time"

	"keswan/internal/log"
	"keswan/internal/sheets"
)

// ReferenceSeeder stores reference lists locally.
type ReferenceSeeder interface {
	SeedReferences(ctx context.Context, list sheets.ReferenceList, values []string) error
}

// ReferenceSync copies the facility, officer and village lists maintained in
// the shared spreadsheet into the local store.
type ReferenceSync struct {
	source sheets.ReferenceReader
	target ReferenceSeeder
	logger *log.Logger
}

func NewReferenceSync(source sheets.ReferenceReader, target ReferenceSeeder, logger *log.Logger) *ReferenceSync {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReferenceSync{source: source, target: target, logger: logger.WithComponent(log.ComponentWorker)}
}

// Sync refreshes every list. An empty remote list keeps the local copy.
func (s *ReferenceSync) Sync(ctx context.Context) error {
	for _, list := range sheets.ReferenceLists() {
		values, err := s.source.References(ctx, list)
		if err != nil {
			return fmt.Errorf("read %s: %w", list, err)
		}
		if len(values) == 0 {
			s.logger.WarnContext(ctx, "Remote reference list is empty, keeping local copy", log.FieldList, string(list))
			continue
		}
		if err := s.target.SeedReferences(ctx, list, values); err != nil {
			return fmt.Errorf("store %s: %w", list, err)
		}
	}
	s.logger.InfoContext(ctx, "Reference lists synchronized")
	return nil
}

// RunPeriodic syncs once immediately, then every interval until ctx ends.
// Failures are logged and retried on the next tick.
func (s *ReferenceSync) RunPeriodic(ctx context.Context, interval time.Duration) {
	if err := s.Sync(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Reference sync failed", log.FieldError, err.Error())
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Reference sync failed", log.FieldError, err.Error())
			}
		}
	}
}
