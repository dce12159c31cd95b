package server

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/campaignlens/campaignlens/internal/distribution"
	"github.com/campaignlens/campaignlens/internal/filter"
	"github.com/campaignlens/campaignlens/internal/session"
	"github.com/campaignlens/campaignlens/internal/store"
)

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

type pageData struct {
	State         string
	Filename      string
	ErrorMsg      string
	OutcomeColumn string
	AgeMin        int
	AgeMax        int
	SpecMin       int
	SpecMax       int
	Jobs          []string
	Marital       []string
	Selected      filter.Spec
	Header        []string
	Rows          [][]string
	TotalRows     int
	FilteredRows  int
	Shares        []distribution.Share
	Activity      []store.Event
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)

	data := pageData{
		State:         sess.State().String(),
		Filename:      sess.Filename(),
		OutcomeColumn: s.cfg.Data.OutcomeColumn,
	}

	switch sess.State() {
	case session.StateNoFile:
		s.renderPage(w, http.StatusOK, data)
		return
	case session.StateMissingColumn:
		data.ErrorMsg = "Column " + s.cfg.Data.OutcomeColumn + " is not present in the uploaded data. Check the file and start a new session."
		s.renderPage(w, http.StatusOK, data)
		return
	}

	ds, err := sess.Dataset()
	if err != nil {
		http.Error(w, "no dataset loaded", http.StatusInternalServerError)
		return
	}
	filtered, err := sess.Filtered()
	if err != nil {
		http.Error(w, "no dataset loaded", http.StatusInternalServerError)
		return
	}

	min, max, err := ds.NumericBounds(s.cfg.Data.AgeColumn)
	if err != nil {
		zap.L().Error("index: age bounds", zap.Error(err))
		http.Error(w, "age column is not numeric", http.StatusInternalServerError)
		return
	}
	data.AgeMin, data.AgeMax = int(min), int(max)
	data.SpecMin, data.SpecMax = data.AgeMin, data.AgeMax

	// Job and marital domains feed the filter form; a missing column just
	// leaves its selector empty.
	data.Jobs, _ = ds.Distinct(s.cfg.Data.JobColumn)
	data.Marital, _ = ds.Distinct(s.cfg.Data.MaritalColumn)

	if spec := sess.Spec(); spec != nil {
		data.Selected = *spec
		data.SpecMin, data.SpecMax = spec.AgeMin, spec.AgeMax
	}

	preview := filtered.Head(10)
	data.Header = preview[0]
	data.Rows = preview[1:]
	data.TotalRows = ds.NumRows()
	data.FilteredRows = filtered.NumRows()

	shares, err := distribution.Summarize(filtered, s.cfg.Data.OutcomeColumn)
	if err != nil {
		zap.L().Error("index: summarize outcome", zap.Error(err))
		http.Error(w, "summarize outcome column", http.StatusInternalServerError)
		return
	}
	data.Shares = shares

	if events, err := s.events.ListEvents(r.Context(), store.Query{SessionID: sess.ID, Limit: 10}); err == nil {
		data.Activity = events
	} else {
		zap.L().Warn("index: list activity", zap.Error(err))
	}

	s.renderPage(w, http.StatusOK, data)
}

func (s *Server) renderUploadError(w http.ResponseWriter, sess *session.Session, msg string) {
	data := pageData{
		State:         sess.State().String(),
		Filename:      sess.Filename(),
		OutcomeColumn: s.cfg.Data.OutcomeColumn,
		ErrorMsg:      msg,
	}
	s.renderPage(w, http.StatusUnprocessableEntity, data)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTmpl.Execute(w, data); err != nil {
		zap.L().Error("index: render template", zap.Error(err))
	}
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Campaign Analysis Dashboard</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
h1 { font-size: 1.5rem; }
section { margin-bottom: 2rem; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; font-size: 0.9rem; }
th { background: #f0f0f0; }
.error { background: #fdecea; border: 1px solid #c44e52; padding: 0.8rem; }
.warning { background: #fef7e0; border: 1px solid #dd8452; padding: 0.8rem; }
.charts img { margin-right: 1rem; border: 1px solid #eee; }
fieldset { border: 1px solid #ccc; padding: 1rem; max-width: 28rem; }
label { display: block; margin-top: 0.5rem; }
</style>
</head>
<body>
<h1>Campaign Analysis Dashboard</h1>

{{if .ErrorMsg}}
<section class="error">{{.ErrorMsg}}</section>
{{end}}

{{if eq .State "missing_column"}}
{{else if eq .State "no_file"}}
<section class="warning">Upload a semicolon-separated CSV or XLSX file to begin.</section>
<section>
  <form action="/upload" method="post" enctype="multipart/form-data">
    <input type="file" name="file" required>
    <button type="submit">Upload</button>
  </form>
</section>
{{else}}
<section>
  <p>Loaded <strong>{{.Filename}}</strong>: {{.TotalRows}} rows, showing {{.FilteredRows}} after filters.</p>
  <form action="/upload" method="post" enctype="multipart/form-data">
    <input type="file" name="file" required>
    <button type="submit">Replace file</button>
  </form>
</section>

<section>
  <form action="/filter" method="post">
    <fieldset>
      <legend>Filters</legend>
      <label>Age from
        <input type="number" name="age_min" min="{{.AgeMin}}" max="{{.AgeMax}}" value="{{.SpecMin}}">
      </label>
      <label>Age to
        <input type="number" name="age_max" min="{{.AgeMin}}" max="{{.AgeMax}}" value="{{.SpecMax}}">
      </label>
      <label>Jobs
        <select name="jobs" multiple size="6">
          <option value="all" selected>all</option>
          {{range .Jobs}}<option value="{{.}}">{{.}}</option>{{end}}
        </select>
      </label>
      <label>Marital status
        <select name="marital" multiple size="4">
          <option value="all" selected>all</option>
          {{range .Marital}}<option value="{{.}}">{{.}}</option>{{end}}
        </select>
      </label>
      <button type="submit">Apply filters</button>
    </fieldset>
  </form>
</section>

<section>
  <h2>Filtered data</h2>
  <table>
    <tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
    {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
  </table>
  <p><a href="/download">Download filtered data (Excel)</a></p>
</section>

<section class="charts">
  <h2>Outcome proportion ({{.OutcomeColumn}})</h2>
  <img src="/charts/bar.png" alt="Outcome distribution bar chart">
  <img src="/charts/pie.png" alt="Outcome distribution pie chart">
  <ul>
    {{range .Shares}}<li>{{.Value}}: {{printf "%.1f" .Percent}}%</li>{{end}}
  </ul>
</section>

{{if .Activity}}
<section>
  <h2>Recent activity</h2>
  <table>
    <tr><th>When</th><th>Action</th><th>File</th><th>Rows</th></tr>
    {{range .Activity}}
    <tr>
      <td>{{.CreatedAt.Format "15:04:05"}}</td>
      <td>{{.Kind}}</td>
      <td>{{.Filename}}</td>
      <td>{{.RowsOut}}</td>
    </tr>
    {{end}}
  </table>
</section>
{{end}}
{{end}}

</body>
</html>
`
