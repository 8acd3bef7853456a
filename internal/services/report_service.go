package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"keswan/internal/cache"
	"keswan/internal/core"
	"keswan/internal/export"
	"keswan/internal/log"
	"keswan/internal/metrics"
	"keswan/internal/report"
	"keswan/internal/sheets"
)

var (
	ErrPeriodRequired = errors.New("select a year or a month first")
	ErrUnknownKind    = errors.New("unknown report kind")
	ErrUnknownFormat  = errors.New("unknown export format")
)

// ReportKind names an exportable report.
type ReportKind string

const (
	KindFacility   ReportKind = "facility"
	KindRecap      ReportKind = "recap"
	KindStatistics ReportKind = "statistics"
)

func ParseReportKind(s string) (ReportKind, error) {
	switch k := ReportKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindFacility, KindRecap, KindStatistics:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// filenamePrefix maps a kind to the document name prefix.
func (k ReportKind) filenamePrefix() string {
	switch k {
	case KindFacility:
		return export.KindFacility
	case KindRecap:
		return export.KindRecap
	default:
		return export.KindStatistics
	}
}

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat defaults to XLSX when s is empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// StatsQuery selects and groups records for a statistic.
type StatsQuery struct {
	Criteria  report.Criteria
	Dimension report.Dimension
	Weighting report.Weighting
	// Percent fills StatItem.Percentage.
	Percent bool
}

// ExportRequest describes one rendered document. Dimension and Weighting
// only apply to KindStatistics.
type ExportRequest struct {
	Kind      ReportKind
	Format    Format
	Criteria  report.Criteria
	Dimension report.Dimension
	Weighting report.Weighting
}

func (r ExportRequest) cacheKey() string {
	return fmt.Sprintf("%s|%s|%d|%d|%s|%s|%s", r.Kind, r.Format,
		r.Criteria.Period.Year, r.Criteria.Period.Month, r.Criteria.Query, r.Dimension, r.Weighting)
}

// Document is an encoded export.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Dashboard bundles the statistics shown on the landing page.
type Dashboard struct {
	Records     int             `json:"records"`
	Livestock   int64           `json:"livestock"`
	ByMonth     []core.StatItem `json:"byMonth"`
	ByOfficer   []core.StatItem `json:"byOfficer"`
	ByFacility  []core.StatItem `json:"byFacility"`
	ByDiagnosis []core.StatItem `json:"byDiagnosis"`
	BySpecies   []core.StatItem `json:"bySpecies"`
	Recap       core.RecapData  `json:"recap"`
}

type ReportOptions struct {
	// Facilities overrides the reference list order for facility exports.
	Facilities    []string
	RequirePeriod bool
	Cache         cache.Cache[Document]
	Metrics       *metrics.Metrics
	Logger        *log.Logger
}

// ReportService renders statistics, recaps and export documents from the
// records of a RecordSource. Each call works on its own snapshot.
type ReportService struct {
	source        sheets.RecordSource
	refs          sheets.ReferenceReader
	facilities    []string
	requirePeriod bool
	cache         cache.Cache[Document]
	metrics       *metrics.Metrics
	logger        *log.Logger
	group         singleflight.Group
	now           func() time.Time
	// generation advances on every Invalidate. Snapshot flights and cache
	// keys carry it so work started before a record change is never reused.
	generation atomic.Uint64
}

// NewReportService wires a report service. refs may be nil.
func NewReportService(source sheets.RecordSource, refs sheets.ReferenceReader, opts ReportOptions) *ReportService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportService{
		source:        source,
		refs:          refs,
		facilities:    opts.Facilities,
		requirePeriod: opts.RequirePeriod,
		cache:         opts.Cache,
		metrics:       opts.Metrics,
		logger:        logger.WithComponent(log.ComponentReport),
		now:           time.Now,
	}
}

// Snapshot loads and normalizes every stored record. Concurrent callers
// share one backend read; the read is detached from any single caller, so
// one cancelled request does not fail the others.
func (s *ReportService) Snapshot(ctx context.Context) (report.Snapshot, error) {
	key := "snapshot|" + strconv.FormatUint(s.generation.Load(), 10)
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		raws, err := s.source.ListRaw(shared)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		snap := report.BuildSnapshot(raws, s.logger)
		s.metrics.ObserveSnapshot(len(snap.Records), snap.Dropped)
		if snap.Dropped > 0 {
			s.logger.WarnContext(shared, "Snapshot contains malformed records",
				log.FieldRecords, len(snap.Records),
				log.FieldDropped, snap.Dropped)
		}
		return snap, nil
	})
	select {
	case <-ctx.Done():
		return report.Snapshot{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return report.Snapshot{}, res.Err
		}
		return res.Val.(report.Snapshot), nil
	}
}

// Records returns the normalized records matching c.
func (s *ReportService) Records(ctx context.Context, c report.Criteria) ([]core.ServiceRecord, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return c.Apply(snap.Records), nil
}

func (s *ReportService) checkPeriod(c report.Criteria) error {
	if s.requirePeriod && !c.HasPeriod() {
		return ErrPeriodRequired
	}
	return nil
}

func (s *ReportService) Statistics(ctx context.Context, q StatsQuery) ([]core.StatItem, error) {
	if err := s.checkPeriod(q.Criteria); err != nil {
		return nil, err
	}
	records, err := s.Records(ctx, q.Criteria)
	if err != nil {
		return nil, err
	}
	items := report.Aggregate(records, report.Options{Dimension: q.Dimension, Weighting: q.Weighting})
	if q.Percent {
		items = report.WithPercentages(items)
	}
	s.logger.DebugContext(ctx, "Statistic computed",
		log.FieldOperation, log.OpAggregate,
		log.FieldDimension, string(q.Dimension),
		log.FieldRecords, len(records))
	return items, nil
}

func (s *ReportService) Recap(ctx context.Context, c report.Criteria) (core.RecapData, error) {
	if err := s.checkPeriod(c); err != nil {
		return core.RecapData{}, err
	}
	records, err := s.Records(ctx, c)
	if err != nil {
		return core.RecapData{}, err
	}
	recap := report.BuildRecap(records)
	if len(recap.UnitConflicts) > 0 {
		s.logger.WarnContext(ctx, "Medicines recorded with conflicting units",
			log.FieldOperation, log.OpRecap,
			log.FieldMedicines, strings.Join(recap.UnitConflicts, ", "))
	}
	return recap, nil
}

// Dashboard computes the landing page statistics concurrently over one
// filtered record set.
func (s *ReportService) Dashboard(ctx context.Context, c report.Criteria) (Dashboard, error) {
	records, err := s.Records(ctx, c)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{Records: len(records)}
	for _, r := range records {
		d.Livestock += int64(r.LivestockCount)
	}

	g, _ := errgroup.WithContext(ctx)
	stat := func(dst *[]core.StatItem, dim report.Dimension, tie report.TieBreak) {
		g.Go(func() error {
			*dst = report.WithPercentages(report.Aggregate(records, report.Options{Dimension: dim, TieBreak: tie}))
			return nil
		})
	}
	stat(&d.ByMonth, report.DimensionMonth, report.TieBreakKey)
	stat(&d.ByOfficer, report.DimensionOfficer, report.TieBreakFirstSeen)
	stat(&d.ByFacility, report.DimensionFacility, report.TieBreakFirstSeen)
	stat(&d.ByDiagnosis, report.DimensionDiagnosis, report.TieBreakFirstSeen)
	stat(&d.BySpecies, report.DimensionSpecies, report.TieBreakFirstSeen)
	g.Go(func() error {
		d.Recap = report.BuildRecap(records)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Workbook lays out the report selected by req and returns it with the
// document base name (no extension).
func (s *ReportService) Workbook(ctx context.Context, req ExportRequest) (*export.Workbook, string, error) {
	if err := s.checkPeriod(req.Criteria); err != nil {
		return nil, "", err
	}
	records, err := s.Records(ctx, req.Criteria)
	if err != nil {
		return nil, "", err
	}

	p := req.Criteria.Period
	now := s.now()
	name := strings.TrimSuffix(export.Filename(req.Kind.filenamePrefix(), p, "x", now), ".x")

	switch req.Kind {
	case KindFacility:
		facilities, err := s.facilityOrder(ctx)
		if err != nil {
			return nil, "", err
		}
		return export.FacilityWorkbook(records, facilities), name, nil
	case KindRecap:
		label := fmt.Sprintf("Rekap %s %s", p.MonthLabel(), p.YearLabel(now))
		return export.RecapWorkbook(report.BuildRecap(records), label), name, nil
	case KindStatistics:
		dim := req.Dimension
		if dim == "" {
			dim = report.DimensionMonth
		}
		items := report.WithPercentages(report.Aggregate(records, report.Options{Dimension: dim, Weighting: req.Weighting}))
		return export.StatsWorkbook("Statistik "+dim.Label(), dim.Label(), items), name, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
}

// Export renders and encodes a document. Results are cached until the
// next record change.
func (s *ReportService) Export(ctx context.Context, req ExportRequest) (doc Document, err error) {
	started := s.now()
	defer func() { s.metrics.ObserveReport(string(req.Kind), string(req.Format), started, err) }()

	// The year of now names documents with no period selected.
	key := fmt.Sprintf("%d|%d|%s", s.generation.Load(), s.now().Year(), req.cacheKey())
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.metrics.CacheLookup(true)
			return cached, nil
		}
		s.metrics.CacheLookup(false)
	}

	wb, name, err := s.Workbook(ctx, req)
	if err != nil {
		return Document{}, err
	}

	var buf bytes.Buffer
	switch req.Format {
	case FormatXLSX:
		err = export.EncodeXLSX(&buf, wb)
		doc.ContentType = export.ContentTypeXLSX
	case FormatPDF:
		err = export.EncodePDF(&buf, wb)
		doc.ContentType = export.ContentTypePDF
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}
	if err != nil {
		return Document{}, fmt.Errorf("encode %s: %w", req.Format, err)
	}
	doc.Filename = name + "." + string(req.Format)
	doc.Body = buf.Bytes()

	if s.cache != nil {
		s.cache.Set(key, doc)
	}
	s.logger.InfoContext(ctx, "Report exported",
		log.NewFields().
			WithOperation(log.OpExport).
			WithReport(string(req.Kind), string(req.Format)).
			WithPeriod(req.Criteria.Period.Year, req.Criteria.Period.Month).
			ToSlice()...)
	return doc, nil
}

// Invalidate drops every cached document. Called after record changes.
func (s *ReportService) Invalidate() {
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Purge()
	}
}

// facilityOrder returns the configured canonical list, falling back to the
// backend reference list.
func (s *ReportService) facilityOrder(ctx context.Context) ([]string, error) {
	if len(s.facilities) > 0 || s.refs == nil {
		return s.facilities, nil
	}
	list, err := s.refs.References(ctx, sheets.Facilities)
	if err != nil {
		return nil, fmt.Errorf("read facilities: %w", err)
	}
	return list, nil
}
