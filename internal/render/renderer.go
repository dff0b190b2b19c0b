package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"jobs-viewer/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the stylesheet and browser script served under /static.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// ListPane is everything the list pane depends on.
type ListPane struct {
	Jobs       []models.Job
	SelectedID string
	Loading    bool
	Error      string
}

// DetailPane holds the selected job, if any. Empty marks a loaded job set
// with no postings.
type DetailPane struct {
	Job   *models.Job
	Empty bool
}

// Page is the full viewer page.
type Page struct {
	Dates              []string
	SelectedDate       string
	IncludeInternships bool
	List               ListPane
	Detail             DetailPane
	Loaded             bool
}

// Count is the number of jobs shown in the counter.
func (p Page) Count() int {
	return len(p.List.Jobs)
}

// Panes is the JSON answer to in-page events: each pane's replacement markup.
type Panes struct {
	Selector string `json:"selector"`
	Count    string `json:"count"`
	List     string `json:"list"`
	Detail   string `json:"detail"`
}

// Renderer turns view models into markup. It holds no view state.
type Renderer struct {
	tmpl     *template.Template
	markdown *Markdown
}

func New() (*Renderer, error) {
	r := &Renderer{markdown: NewMarkdown()}

	funcs := template.FuncMap{
		"scoreClass":  func(s float64) string { return string(ClassifyScore(s)) },
		"formatScore": FormatScore,
		"formatDate":  FormatDate,
		"siteName":    SiteName,
		"markdown":    r.markdown.Render,
		"textBlock":   TextBlock,
		"stagger":     StaggerDelay,
		"countLabel":  CountLabel,
	}

	tmpl, err := template.New("viewer").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Templates exposes the template set for gin's HTML renderer.
func (r *Renderer) Templates() *template.Template {
	return r.tmpl
}

// List renders one card per job, in order. An empty job set renders the
// empty-state message.
func (r *Renderer) List(jobs []models.Job, selectedID string) (template.HTML, error) {
	return r.ListPane(ListPane{Jobs: jobs, SelectedID: selectedID})
}

// ListPane renders the list pane including its error and loading states.
func (r *Renderer) ListPane(p ListPane) (template.HTML, error) {
	return r.execute("list-pane", p)
}

// Detail renders the detail view of a single job.
func (r *Renderer) Detail(job models.Job) (template.HTML, error) {
	return r.execute("detail", job)
}

// DetailPane renders the detail pane, falling back to placeholders.
func (r *Renderer) DetailPane(p DetailPane) (template.HTML, error) {
	return r.execute("detail-pane", p)
}

// Panes renders every pane of p for in-place replacement.
func (r *Renderer) Panes(p Page) (Panes, error) {
	var out Panes
	parts := []struct {
		name string
		dst  *string
	}{
		{"selector", &out.Selector},
		{"count", &out.Count},
		{"list-pane", &out.List},
		{"detail-pane", &out.Detail},
	}

	for _, part := range parts {
		var data interface{} = p
		switch part.name {
		case "list-pane":
			data = p.List
		case "detail-pane":
			data = p.Detail
		}
		h, err := r.execute(part.name, data)
		if err != nil {
			return Panes{}, err
		}
		*part.dst = string(h)
	}
	return out, nil
}

func (r *Renderer) execute(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
