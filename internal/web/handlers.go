package web

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/chatmerge/internal/core"
	"github.com/JonMunkholm/chatmerge/internal/sink"
	"github.com/JonMunkholm/chatmerge/internal/web/views"
)

// maxJSONBody caps JSON request bodies; inline data counts against it.
func (s *Server) maxJSONBody() int64 {
	return s.cfg.Merge.MaxFileSize
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	views.Dashboard(views.DashboardData{
		Slots:       formSlots,
		PreviewRows: s.cfg.Merge.PreviewRows,
		MaxFileSize: s.cfg.Merge.MaxFileSize,
		Sinks:       s.sinks.Names(),
	}).Render(r.Context(), w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"merges": s.limiter.Status(),
	})
}

// handlePreview merges uploaded files and renders the first rows.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	form, err := s.readUploadForm(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	res, err := s.run(r.Context(), form.Sources, form.Users)
	if err != nil && !core.IsEmptyResult(err) {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	views.Preview(views.PreviewData{
		RunID:    res.RunID,
		Records:  res.View.Head(s.cfg.Merge.PreviewRows).Records(),
		Total:    res.Timeline.Len(),
		Selected: res.View.Len(),
		Users:    res.Timeline.Users(),
		Filter:   form.Users,
		Skipped:  res.Skipped,
		Dropped:  res.Dropped,
	}).Render(r.Context(), w)
}

// handleDownload merges uploaded files and returns the CSV.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	form, err := s.readUploadForm(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.runAndWriteCSV(w, r, form.Sources, form.Users, "")
}

// handleMerge returns the merged records as JSON. A run where nothing
// survived is still 200 with empty set and the RES001 code.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMergeRequest(w, r, s.maxJSONBody())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	sources, err := s.descriptors(req.Sources)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	res, err := s.run(r.Context(), sources, req.Users)
	if err != nil && !core.IsEmptyResult(err) {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, newMergeResponse(res))
}

// handleExport returns the merged, filtered records as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMergeRequest(w, r, s.maxJSONBody())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	sources, err := s.descriptors(req.Sources)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.runAndWriteCSV(w, r, sources, req.Users, req.Name)
}

// handleUpload merges multipart files; ?format=csv returns the CSV instead
// of JSON.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, err := s.readUploadForm(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		s.runAndWriteCSV(w, r, form.Sources, form.Users, r.URL.Query().Get("name"))
		return
	}

	res, err := s.run(r.Context(), form.Sources, form.Users)
	if err != nil && !core.IsEmptyResult(err) {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, newMergeResponse(res))
}

// SaveResponse is returned by /api/save.
type SaveResponse struct {
	RunID   string      `json:"run_id"`
	Saved   sink.Saved  `json:"saved"`
	Skipped []core.Skip `json:"skipped"`
}

// handleSave merges and hands the CSV to a configured sink.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	req, err := decodeMergeRequest(w, r, s.maxJSONBody())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	sources, err := s.descriptors(req.Sources)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	sinkName := req.Sink
	if sinkName == "" {
		sinkName = "file"
	}
	dest, err := s.sinks.Get(sinkName)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	res, err := s.run(r.Context(), sources, req.Users)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	payload, err := core.ExportCSV(res.View, s.exportOptions())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	name := req.Name
	if name == "" {
		name = s.cfg.Export.FileName
	}
	saved, err := dest.Save(r.Context(), sink.Export{
		Name:    name,
		Payload: payload,
		Records: res.View.Len(),
		RunID:   res.RunID,
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	skipped := res.Skipped
	if skipped == nil {
		skipped = []core.Skip{}
	}
	writeJSON(w, r, http.StatusCreated, SaveResponse{RunID: res.RunID, Saved: saved, Skipped: skipped})
}

func (s *Server) handleListSinks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{"sinks": s.sinks.Names()})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		s.respondError(w, r, sink.ErrUnknownSink, http.StatusNotFound)
		return
	}

	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	list, err := s.exports.List(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	if list == nil {
		list = []sink.StoredExport{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"exports": list})
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	if s.exports == nil {
		s.respondError(w, r, sink.ErrUnknownSink, http.StatusNotFound)
		return
	}

	exp, err := s.exports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeCSV(w, exp.Name, exp.Payload)
}

// runAndWriteCSV runs the pipeline and streams the CSV attachment.
// An empty run is answered with RES001 instead of a header-only file.
func (s *Server) runAndWriteCSV(w http.ResponseWriter, r *http.Request, sources []core.SourceDescriptor, users []string, name string) {
	res, err := s.run(r.Context(), sources, users)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	payload, err := core.ExportCSV(res.View, s.exportOptions())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	fileName, err := sink.CleanName(name, s.cfg.Export.FileName)
	if err != nil {
		fileName = core.DefaultExportFileName
	}
	w.Header().Set("X-Run-ID", res.RunID)
	writeCSV(w, fileName, payload)
}

func writeCSV(w http.ResponseWriter, fileName string, payload []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
