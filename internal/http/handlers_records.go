package http

import (
	"net/http"

	"keswan/internal/sheets"
)

type recordList struct {
	Count   int         `json:"count"`
	Records []recordDTO `json:"records"`
}

// handleListRecords returns the normalized records matching year, month
// and q, ordered by service date.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	records, err := s.reports.Records(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := recordList{Count: len(records), Records: make([]recordDTO, 0, len(records))}
	for _, rec := range records {
		out.Records = append(out.Records, toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(rec))
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.records.Create(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/records/"+created.ID)
	writeJSON(w, http.StatusCreated, toRecordDTO(created))
}

func (s *Server) handleReplaceRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := decodeRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.records.Replace(r.Context(), r.PathValue("id"), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordDTO(updated))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.records.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReferences serves one of the entry form lists.
func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	list := sheets.ReferenceList(r.PathValue("list"))
	known := false
	for _, l := range sheets.ReferenceLists() {
		known = known || l == list
	}
	if !known || s.references == nil {
		writeError(w, r, badRequest("unknown reference list %q", list))
		return
	}
	values, err := s.references.References(r.Context(), list)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if values == nil {
		values = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": list, "values": values})
}
