package http

import (
	"net/http"

	"keswan/internal/core"
	"keswan/internal/log"
)

type statsResponse struct {
	Dimension string          `json:"dimension"`
	Label     string          `json:"label"`
	Weight    string          `json:"weight"`
	Total     int64           `json:"total"`
	Items     []core.StatItem `json:"items"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q, err := ParseStatsQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.reports.Statistics(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var total int64
	for _, it := range items {
		total += it.Count
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Dimension: string(q.Dimension),
		Label:     q.Dimension.Label(),
		Weight:    string(q.Weighting),
		Total:     total,
		Items:     items,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.reports.Dashboard(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type recapResponse struct {
	core.RecapData
	MedicineRows []medicineRow  `json:"medicineRows"`
	CaseRows     []core.CaseRow `json:"caseRows"`
}

type medicineRow struct {
	Name  string `json:"name"`
	Total string `json:"total"`
	Unit  string `json:"unit"`
}

// handleRecap returns the recap both as nested maps and as ordered rows.
func (s *Server) handleRecap(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	recap, err := s.reports.Recap(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := recapResponse{RecapData: recap, CaseRows: recap.Cases.Rows(), MedicineRows: []medicineRow{}}
	for _, name := range recap.MedicineNames() {
		m := recap.Medicines[name]
		out.MedicineRows = append(out.MedicineRows, medicineRow{Name: name, Total: m.Total.String(), Unit: m.Unit})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := ParseExportRequest(r.PathValue("kind"), r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.reports.Export(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

func (s *Server) handleEnqueueExport(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJobRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := s.jobs.Enqueue(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Export job enqueued",
		log.FieldJobID, id,
		log.FieldReportKind, string(req.Kind))
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": id, "status": "queued"})
}
