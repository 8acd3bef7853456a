package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"keswan/internal/amqp"
	"keswan/internal/core"
	"keswan/internal/export"
	"keswan/internal/services"
	"keswan/internal/sheets"
	"keswan/internal/sheets/memory"
)

type fakePublisher struct {
	titles []string
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, title string, wb *export.Workbook) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.titles = append(p.titles, title)
	return "sheet!" + title, nil
}

func newReports(t *testing.T, requirePeriod bool) *services.ReportService {
	t.Helper()
	store := memory.New(nil)
	r := core.ServiceRecord{
		Date: core.NewDate(2024, 5, 2), Facility: "Pos Alfa", Officer: "Ani",
		OwnerName: "Pak Udin", OwnerAddress: "Desa A", Species: "Kambing",
		LivestockCount: 1, Diagnosis: "Orf",
		Treatments: []core.Treatment{{Medicine: "Antiseptik", Dose: 5, Unit: "ml"}},
	}
	if _, err := store.Create(context.Background(), r); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return services.NewReportService(store, store, services.ReportOptions{RequirePeriod: requirePeriod})
}

func TestHandleExportJob(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	w := NewExportWorker(newReports(t, true), pub, nil, nil)

	if err := w.HandleExportJob(ctx, amqp.NewExportJobMessage("recap", 2024, 5)); err != nil {
		t.Fatalf("HandleExportJob: %v", err)
	}
	if len(pub.titles) != 1 || pub.titles[0] != "Rekap_Mei_2024" {
		t.Fatalf("unexpected publications: %v", pub.titles)
	}

	tests := []struct {
		name string
		msg  *amqp.ExportJobMessage
	}{
		{"unknown kind", amqp.NewExportJobMessage("chart", 2024, 5)},
		{"missing period", amqp.NewExportJobMessage("recap", core.YearUnset, core.AllMonths)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.HandleExportJob(ctx, tt.msg)
			if !errors.Is(err, amqp.ErrDiscard) {
				t.Fatalf("expected ErrDiscard, got %v", err)
			}
		})
	}
}

func TestHandleExportJobPublishFailureIsRetryable(t *testing.T) {
	pub := &fakePublisher{err: errors.New("quota exceeded")}
	w := NewExportWorker(newReports(t, false), pub, nil, nil)
	err := w.HandleExportJob(context.Background(), amqp.NewExportJobMessage("facility", 2024, 0))
	if err == nil || errors.Is(err, amqp.ErrDiscard) {
		t.Fatalf("expected a retryable error, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("cause lost: %v", err)
	}
}

type fakeConsumer struct {
	mu         sync.Mutex
	consumes   int
	reconnects int
	failDial   int
	cancel     context.CancelFunc
}

func (c *fakeConsumer) ConsumeExportJobs(ctx context.Context, _ func(context.Context, *amqp.ExportJobMessage) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumes++
	if c.consumes == 3 {
		c.cancel()
		return ctx.Err()
	}
	return errors.New("message channel closed")
}

func (c *fakeConsumer) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnects++
	if c.failDial > 0 {
		c.failDial--
		return errors.New("connection refused")
	}
	return nil
}

func TestRunReconnects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := &fakeConsumer{failDial: 1, cancel: cancel}

	w := NewExportWorker(newReports(t, false), &fakePublisher{}, nil, nil)
	var delays []int
	w.backoff = func(attempt int) time.Duration {
		delays = append(delays, attempt)
		return time.Millisecond
	}

	if err := w.Run(ctx, consumer); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if consumer.consumes != 3 || consumer.reconnects != 3 {
		t.Fatalf("consumes=%d reconnects=%d", consumer.consumes, consumer.reconnects)
	}
	// attempt counter grows across a failed dial and resets after success
	want := []int{0, 1, 0}
	if len(delays) != len(want) {
		t.Fatalf("delays %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delays %v, want %v", delays, want)
		}
	}
}

func TestBackoff(t *testing.T) {
	if backoff(0) != time.Second || backoff(3) != 8*time.Second || backoff(10) != maxBackoff {
		t.Fatalf("unexpected backoff values")
	}
}

type failingSource struct{ err error }

func (f failingSource) References(context.Context, sheets.ReferenceList) ([]string, error) {
	return nil, f.err
}

func TestReferenceSync(t *testing.T) {
	ctx := context.Background()
	remote := memory.New(map[sheets.ReferenceList][]string{
		sheets.Facilities: {"Puskeswan Kota", "Pos Alfa"},
		sheets.Officers:   {"Ani", "Budi"},
	})
	local := &recordingSeeder{lists: map[sheets.ReferenceList][]string{sheets.Villages: {"Desa A"}}}

	if err := NewReferenceSync(remote, local, nil).Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if got := local.lists[sheets.Facilities]; len(got) != 2 || got[0] != "Puskeswan Kota" {
		t.Fatalf("facilities not copied: %v", got)
	}
	if got := local.lists[sheets.Villages]; len(got) != 1 {
		t.Fatalf("empty remote list must keep local copy, got %v", got)
	}

	err := NewReferenceSync(failingSource{errors.New("403")}, local, nil).Sync(ctx)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected source error, got %v", err)
	}
}

type recordingSeeder struct {
	lists map[sheets.ReferenceList][]string
}

func (r *recordingSeeder) SeedReferences(_ context.Context, list sheets.ReferenceList, values []string) error {
	r.lists[list] = values
	return nil
}
