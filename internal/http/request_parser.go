package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"keswan/internal/core"
	"keswan/internal/report"
	"keswan/internal/services"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed input. It maps to 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// allValues are the query values selecting every year or month.
var allValues = map[string]bool{"all": true, "semua": true}

// ParsePeriod reads year and month from query. An absent year leaves the
// period unset; "all" selects every year. Months accept 1-12 or the
// Indonesian month name.
func ParsePeriod(query url.Values) (core.Period, error) {
	p := core.Period{Year: core.YearUnset, Month: core.AllMonths}

	switch v := strings.TrimSpace(query.Get("year")); {
	case v == "":
	case allValues[strings.ToLower(v)]:
		p.Year = core.AllYears
	default:
		y, err := strconv.Atoi(v)
		if err != nil || (y < 1 && y != core.AllYears) {
			return core.Period{}, badRequest("invalid year %q", v)
		}
		p.Year = y
	}

	switch v := strings.TrimSpace(query.Get("month")); {
	case v == "" || v == "0" || allValues[strings.ToLower(v)]:
	default:
		if m, ok := core.MonthByName(v); ok {
			p.Month = m
			break
		}
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return core.Period{}, badRequest("invalid month %q", v)
		}
		p.Month = m
	}
	return p, nil
}

// ParseCriteria reads the period and the free-text query "q".
func ParseCriteria(query url.Values) (report.Criteria, error) {
	p, err := ParsePeriod(query)
	if err != nil {
		return report.Criteria{}, err
	}
	return report.Criteria{Period: p, Query: sanitizeInput(query.Get("q"))}, nil
}

// ParseStatsQuery reads a statistics request. The dimension defaults to month.
func ParseStatsQuery(query url.Values) (services.StatsQuery, error) {
	c, err := ParseCriteria(query)
	if err != nil {
		return services.StatsQuery{}, err
	}
	q := services.StatsQuery{Criteria: c, Dimension: report.DimensionMonth}
	if v := strings.TrimSpace(query.Get("dimension")); v != "" {
		if q.Dimension, err = report.ParseDimension(v); err != nil {
			return services.StatsQuery{}, fmt.Errorf("%w: %w", errBadRequest, err)
		}
	}
	if q.Weighting, err = report.ParseWeighting(strings.TrimSpace(query.Get("weight"))); err != nil {
		return services.StatsQuery{}, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if v := strings.TrimSpace(query.Get("percent")); v != "" {
		if q.Percent, err = strconv.ParseBool(v); err != nil {
			return services.StatsQuery{}, badRequest("invalid percent %q", v)
		}
	}
	return q, nil
}

// ParseExportRequest reads an export download request for kind.
func ParseExportRequest(kind string, query url.Values) (services.ExportRequest, error) {
	k, err := services.ParseReportKind(kind)
	if err != nil {
		return services.ExportRequest{}, err
	}
	f, err := services.ParseFormat(query.Get("format"))
	if err != nil {
		return services.ExportRequest{}, err
	}
	stats, err := ParseStatsQuery(query)
	if err != nil {
		return services.ExportRequest{}, err
	}
	return services.ExportRequest{
		Kind:      k,
		Format:    f,
		Criteria:  stats.Criteria,
		Dimension: stats.Dimension,
		Weighting: stats.Weighting,
	}, nil
}

// jobRequest is the body of POST /api/exports/jobs.
type jobRequest struct {
	Kind      string `json:"kind"`
	Year      string `json:"year"`
	Month     string `json:"month"`
	Query     string `json:"q"`
	Dimension string `json:"dimension"`
	Weight    string `json:"weight"`
}

func decodeJobRequest(r *http.Request) (services.ExportRequest, error) {
	var body jobRequest
	if err := decodeJSON(r, &body); err != nil {
		return services.ExportRequest{}, err
	}
	q := url.Values{}
	for key, v := range map[string]string{
		"year": body.Year, "month": body.Month, "q": body.Query,
		"dimension": body.Dimension, "weight": body.Weight,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	return ParseExportRequest(body.Kind, q)
}

type treatmentDTO struct {
	Category string  `json:"medicineCategory,omitempty"`
	Medicine string  `json:"medicineName"`
	Dose     float64 `json:"dose"`
	Unit     string  `json:"unit"`
}

type caseDevelopmentDTO struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// recordDTO is the wire form of a service record, shared by requests and
// responses. Dates use YYYY-MM-DD.
type recordDTO struct {
	ID               string               `json:"id,omitempty"`
	Date             string               `json:"date"`
	Facility         string               `json:"facility"`
	Officer          string               `json:"officer"`
	OwnerName        string               `json:"ownerName"`
	OwnerAddress     string               `json:"ownerAddress"`
	Species          string               `json:"livestockType"`
	LivestockCount   int                  `json:"livestockCount"`
	Symptoms         string               `json:"symptoms,omitempty"`
	Diagnosis        string               `json:"diagnosis"`
	TreatmentType    string               `json:"treatmentType,omitempty"`
	Treatments       []treatmentDTO       `json:"treatments"`
	CaseDevelopments []caseDevelopmentDTO `json:"caseDevelopments,omitempty"`
}

func (d recordDTO) toRecord() (core.ServiceRecord, error) {
	date, err := parseDate(d.Date)
	if err != nil {
		return core.ServiceRecord{}, badRequest("invalid date %q: want YYYY-MM-DD", d.Date)
	}
	r := core.ServiceRecord{
		Date:           date,
		Facility:       sanitizeInput(d.Facility),
		Officer:        sanitizeInput(d.Officer),
		OwnerName:      sanitizeInput(d.OwnerName),
		OwnerAddress:   sanitizeInput(d.OwnerAddress),
		Species:        sanitizeInput(d.Species),
		LivestockCount: d.LivestockCount,
		Symptoms:       sanitizeInput(d.Symptoms),
		Diagnosis:      sanitizeInput(d.Diagnosis),
		TreatmentType:  sanitizeInput(d.TreatmentType),
	}
	for _, t := range d.Treatments {
		r.Treatments = append(r.Treatments, core.Treatment{
			Category: sanitizeInput(t.Category),
			Medicine: sanitizeInput(t.Medicine),
			Dose:     t.Dose,
			Unit:     sanitizeInput(t.Unit),
		})
	}
	for _, c := range d.CaseDevelopments {
		r.CaseDevelopments = append(r.CaseDevelopments, core.CaseDevelopment{
			Status: sanitizeInput(c.Status),
			Count:  c.Count,
		})
	}
	return r, nil
}

func toRecordDTO(r core.ServiceRecord) recordDTO {
	d := recordDTO{
		ID:             r.ID,
		Date:           r.Date.Format("2006-01-02"),
		Facility:       r.Facility,
		Officer:        r.Officer,
		OwnerName:      r.OwnerName,
		OwnerAddress:   r.OwnerAddress,
		Species:        r.Species,
		LivestockCount: r.LivestockCount,
		Symptoms:       r.Symptoms,
		Diagnosis:      r.Diagnosis,
		TreatmentType:  r.TreatmentType,
		Treatments:     make([]treatmentDTO, 0, len(r.Treatments)),
	}
	for _, t := range r.Treatments {
		d.Treatments = append(d.Treatments, treatmentDTO{Category: t.Category, Medicine: t.Medicine, Dose: t.Dose, Unit: t.Unit})
	}
	for _, c := range r.CaseDevelopments {
		d.CaseDevelopments = append(d.CaseDevelopments, caseDevelopmentDTO{Status: c.Status, Count: c.Count})
	}
	return d
}

func decodeRecord(r *http.Request) (core.ServiceRecord, error) {
	var d recordDTO
	if err := decodeJSON(r, &d); err != nil {
		return core.ServiceRecord{}, err
	}
	return d.toRecord()
}

// decodeJSON reads one JSON object, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON body: trailing data")
	}
	return nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(t), nil
}

// sanitizeInput trims whitespace and removes control characters except
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
