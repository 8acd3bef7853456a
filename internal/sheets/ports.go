// Package sheets declares the ports between the report services and the
// backends that hold service records, reference lists and publications.
package sheets

import (
	"context"

	"keswan/internal/core"
	"keswan/internal/export"
)

// ReferenceList names one of the canonical lists used by entry forms and
// by the facility export.
type ReferenceList string

const (
	Facilities ReferenceList = "facilities"
	Officers   ReferenceList = "officers"
	Villages   ReferenceList = "villages"
)

// ReferenceLists returns every list in a stable order.
func ReferenceLists() []ReferenceList {
	return []ReferenceList{Facilities, Officers, Villages}
}

// Ports for outbound adapters.
type (
	// RecordSource returns every stored record as an untyped document.
	RecordSource interface {
		ListRaw(ctx context.Context) ([]core.RawRecord, error)
	}

	// RecordReader fetches a single stored document.
	RecordReader interface {
		GetRaw(ctx context.Context, id string) (core.RawRecord, error)
	}

	// RecordWriter persists validated records. Create assigns the id when
	// the record has none; Replace and Delete return core.ErrRecordNotFound
	// for unknown ids.
	RecordWriter interface {
		Create(ctx context.Context, r core.ServiceRecord) (core.ServiceRecord, error)
		Replace(ctx context.Context, r core.ServiceRecord) error
		Delete(ctx context.Context, id string) error
	}

	ReferenceReader interface {
		References(ctx context.Context, list ReferenceList) ([]string, error)
	}

	// WorkbookPublisher writes a laid out workbook to an external
	// spreadsheet and returns a reference to the publication.
	WorkbookPublisher interface {
		Publish(ctx context.Context, title string, wb *export.Workbook) (ref string, err error)
	}
)

// Store is the full record backend used by the HTTP server.
type Store interface {
	RecordSource
	RecordReader
	RecordWriter
	ReferenceReader
}
