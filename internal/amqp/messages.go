package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ExportJobMessage asks the worker to render a report and publish it to the
// shared spreadsheet. It carries the selection only; the worker reads the
// records itself so the job always reflects the data at processing time.
type ExportJobMessage struct {
	JobID     string    `json:"job_id"`
	Kind      string    `json:"kind"`
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Query     string    `json:"query,omitempty"`
	Dimension string    `json:"dimension,omitempty"`
	Weighting string    `json:"weighting,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExportJobMessage creates a job with a fresh id.
func NewExportJobMessage(kind string, year, month int) *ExportJobMessage {
	return &ExportJobMessage{
		JobID:     uuid.NewString(),
		Kind:      kind,
		Year:      year,
		Month:     month,
		Timestamp: time.Now(),
	}
}

func (m *ExportJobMessage) Validate() error {
	if m.JobID == "" {
		return errors.New("missing job id")
	}
	if m.Kind == "" {
		return errors.New("missing report kind")
	}
	if m.Month < 0 || m.Month > 12 {
		return fmt.Errorf("invalid month: %d", m.Month)
	}
	return nil
}

func (m *ExportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExportJobMessageFromJSON(data []byte) (*ExportJobMessage, error) {
	var msg ExportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
