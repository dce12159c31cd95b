package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/campaignlens/campaignlens/internal/cache"
	"github.com/campaignlens/campaignlens/internal/dataset"
	"github.com/campaignlens/campaignlens/internal/distribution"
	"github.com/campaignlens/campaignlens/internal/filter"
	"github.com/campaignlens/campaignlens/internal/report"
	"github.com/campaignlens/campaignlens/internal/session"
	"github.com/campaignlens/campaignlens/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.uploads.Allow() {
		http.Error(w, "upload rate exceeded, retry shortly", http.StatusTooManyRequests)
		return
	}
	sess := s.session(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
		http.Error(w, "invalid multipart upload", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `form field "file" is required`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read upload", http.StatusInternalServerError)
		return
	}

	ds, err := s.loads.Get(cache.Key(raw), func() (*dataset.Dataset, error) {
		return dataset.Load(raw)
	})
	if err != nil {
		if errors.Is(err, dataset.ErrUnparseable) {
			s.renderUploadError(w, sess, "The file could not be read as semicolon-separated CSV or XLSX.")
			return
		}
		zap.L().Error("upload: load dataset", zap.Error(err))
		http.Error(w, "load dataset", http.StatusInternalServerError)
		return
	}

	err = sess.SetDataset(ds, header.Filename, s.cfg.Data.OutcomeColumn)
	switch {
	case errors.Is(err, dataset.ErrMissingColumn):
		// The session is now terminal; the index page shows the error.
		zap.L().Warn("upload: outcome column missing",
			zap.String("session", sess.ID),
			zap.String("filename", header.Filename),
		)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case errors.Is(err, session.ErrTerminal):
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case err != nil:
		http.Error(w, "store dataset", http.StatusInternalServerError)
		return
	}

	s.record(r, store.Event{
		SessionID: sess.ID,
		Kind:      store.EventUpload,
		Filename:  header.Filename,
		RowsIn:    ds.NumRows(),
		RowsOut:   ds.NumRows(),
	})
	zap.L().Info("upload: dataset loaded",
		zap.String("session", sess.ID),
		zap.String("filename", header.Filename),
		zap.Int("rows", ds.NumRows()),
	)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	ds, err := sess.Dataset()
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ageMin, err := strconv.Atoi(r.FormValue("age_min"))
	if err != nil {
		http.Error(w, "age_min must be an integer", http.StatusBadRequest)
		return
	}
	ageMax, err := strconv.Atoi(r.FormValue("age_max"))
	if err != nil {
		http.Error(w, "age_max must be an integer", http.StatusBadRequest)
		return
	}

	spec := filter.Spec{
		AgeMin:  ageMin,
		AgeMax:  ageMax,
		Jobs:    r.Form["jobs"],
		Marital: r.Form["marital"],
	}
	filtered, err := spec.Apply(ds, s.filterColumns())
	if err != nil {
		zap.L().Error("filter: apply", zap.Error(err))
		http.Error(w, "apply filters", http.StatusInternalServerError)
		return
	}
	if err := sess.SetFiltered(filtered, spec); err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	specJSON, _ := json.Marshal(spec)
	s.record(r, store.Event{
		SessionID: sess.ID,
		Kind:      store.EventFilter,
		Filename:  sess.Filename(),
		RowsIn:    ds.NumRows(),
		RowsOut:   filtered.NumRows(),
		Spec:      string(specJSON),
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	ds, err := sess.Filtered()
	if err != nil {
		s.noDataset(w, err)
		return
	}

	n := 10
	if q := r.URL.Query().Get("rows"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed > 0 {
			n = parsed
		}
	}

	records := ds.Head(n)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"columns": records[0],
		"rows":    records[1:],
		"total":   ds.NumRows(),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	ds, err := sess.Filtered()
	if err != nil {
		s.noDataset(w, err)
		return
	}

	recordsJSON, err := json.Marshal(ds.Records())
	if err != nil {
		http.Error(w, "encode table", http.StatusInternalServerError)
		return
	}
	sheet := s.cfg.Export.SheetName
	raw, err := s.exports.Get(cache.Key([]byte(sheet), recordsJSON), func() ([]byte, error) {
		return report.ToXLSX(ds, sheet)
	})
	if err != nil {
		zap.L().Error("download: export xlsx", zap.Error(err))
		http.Error(w, "export spreadsheet", http.StatusInternalServerError)
		return
	}

	s.record(r, store.Event{
		SessionID: sess.ID,
		Kind:      store.EventExport,
		Filename:  s.cfg.Export.DownloadFilename,
		RowsIn:    ds.NumRows(),
		RowsOut:   ds.NumRows(),
	})

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.cfg.Export.DownloadFilename))
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.Write(raw)
}

func (s *Server) handleBarChart(w http.ResponseWriter, r *http.Request) {
	shares, ok := s.chartShares(w, r)
	if !ok {
		return
	}
	png, err := s.renderer.BarPNG(shares, "Outcome distribution")
	if err != nil {
		zap.L().Error("chart: render bar", zap.Error(err))
		http.Error(w, "render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handlePieChart(w http.ResponseWriter, r *http.Request) {
	shares, ok := s.chartShares(w, r)
	if !ok {
		return
	}
	png, err := s.renderer.PiePNG(shares, "Outcome distribution")
	if err != nil {
		zap.L().Error("chart: render pie", zap.Error(err))
		http.Error(w, "render chart", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	events, err := s.events.ListEvents(r.Context(), store.Query{SessionID: sess.ID, Limit: 20})
	if err != nil {
		zap.L().Error("activity: list events", zap.Error(err))
		http.Error(w, "list activity", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"events": events})
}

// chartShares resolves the current filtered dataset and its outcome summary.
func (s *Server) chartShares(w http.ResponseWriter, r *http.Request) ([]distribution.Share, bool) {
	sess := s.session(w, r)
	ds, err := sess.Filtered()
	if err != nil {
		s.noDataset(w, err)
		return nil, false
	}
	shares, err := distribution.Summarize(ds, s.cfg.Data.OutcomeColumn)
	if err != nil {
		zap.L().Error("chart: summarize outcome", zap.Error(err))
		http.Error(w, "summarize outcome column", http.StatusInternalServerError)
		return nil, false
	}
	return shares, true
}

func (s *Server) noDataset(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrTerminal) {
		http.Error(w, fmt.Sprintf("column %q is missing from the uploaded data", s.cfg.Data.OutcomeColumn), http.StatusConflict)
		return
	}
	http.Error(w, "no dataset loaded", http.StatusNotFound)
}

// record writes an activity-log event; failures are logged, never surfaced.
func (s *Server) record(r *http.Request, event store.Event) {
	if _, err := s.events.RecordEvent(r.Context(), event); err != nil {
		zap.L().Warn("activity: record event",
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
	}
}
