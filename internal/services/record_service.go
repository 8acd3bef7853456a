package services

import (
	"context"
	"errors"
	"fmt"

	"keswan/internal/core"
	"keswan/internal/log"
	"keswan/internal/report"
	"keswan/internal/sheets"
)

// ErrValidation wraps every rejected record.
var ErrValidation = errors.New("validation failed")

// RecordStore is the backend RecordService writes to.
type RecordStore interface {
	sheets.RecordReader
	sheets.RecordWriter
}

// Invalidator is notified after every successful write.
type Invalidator interface {
	Invalidate()
}

// RecordService validates records at entry and keeps derived caches
// consistent with the store.
type RecordService struct {
	store       RecordStore
	invalidator Invalidator
	logger      *log.Logger
}

// NewRecordService wires a record service. invalidator may be nil.
func NewRecordService(store RecordStore, invalidator Invalidator, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecordService{
		store:       store,
		invalidator: invalidator,
		logger:      logger.WithComponent(log.ComponentRecord),
	}
}

// Create validates r and stores it under a fresh id.
func (s *RecordService) Create(ctx context.Context, r core.ServiceRecord) (core.ServiceRecord, error) {
	r.ID = ""
	if err := r.Validate(); err != nil {
		return core.ServiceRecord{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	created, err := s.store.Create(ctx, r)
	if err != nil {
		return core.ServiceRecord{}, fmt.Errorf("save record: %w", err)
	}
	s.changed(ctx, log.OpCreate, created.ID)
	return created, nil
}

// Replace overwrites the record id wholesale.
func (s *RecordService) Replace(ctx context.Context, id string, r core.ServiceRecord) (core.ServiceRecord, error) {
	r.ID = id
	if err := r.Validate(); err != nil {
		return core.ServiceRecord{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err := s.store.Replace(ctx, r); err != nil {
		return core.ServiceRecord{}, fmt.Errorf("replace record: %w", err)
	}
	s.changed(ctx, log.OpUpdate, id)
	return r, nil
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	s.changed(ctx, log.OpDelete, id)
	return nil
}

// Get returns the normalized record id.
func (s *RecordService) Get(ctx context.Context, id string) (core.ServiceRecord, error) {
	raw, err := s.store.GetRaw(ctx, id)
	if err != nil {
		return core.ServiceRecord{}, err
	}
	return report.Normalize(raw)
}

func (s *RecordService) changed(ctx context.Context, op, id string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
	s.logger.InfoContext(ctx, "Record changed", log.FieldOperation, op, log.FieldRecordID, id)
}
