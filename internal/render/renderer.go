package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
)

//go:embed templates
var templateFS embed.FS

// Base is embedded by every page model for the shared layout.
type Base struct {
	Title     string
	RequestID string
	Flash     string
}

// Renderer executes the embedded page templates. Each page is parsed together with the layout
// and partials so pages can define their own blocks.
type Renderer struct {
	pages    map[string]*template.Template
	partials *template.Template
	logger   *zap.Logger
}

// NewRenderer parses every template once.
func NewRenderer(logger *zap.Logger) (*Renderer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcs := FuncMap()

	shared := []string{"templates/layout/*.tmpl", "templates/partials/*.tmpl"}
	partials, err := template.New("partials").Funcs(funcs).ParseFS(templateFS, shared...)
	if err != nil {
		return nil, fmt.Errorf("render: parse partials: %w", err)
	}

	pageFiles, err := fs.Glob(templateFS, "templates/pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	if len(pageFiles) == 0 {
		return nil, fmt.Errorf("render: no page templates found")
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		name := strings.TrimSuffix(path.Base(file), ".tmpl")
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, append(shared, file)...)
		if err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, partials: partials, logger: logger}, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Page writes a full document, or only the "content" block for htmx requests.
func (r *Renderer) Page(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.pages[name]
	if !ok {
		r.fail(w, req, fmt.Errorf("render: unknown page %q", name))
		return
	}
	entry := "base"
	if requestctx.IsHTMX(req.Context()) {
		entry = "content"
	}
	r.execute(w, req, status, t, entry, data)
}

// Partial writes a single named fragment.
func (r *Renderer) Partial(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	if r.partials.Lookup(name) == nil {
		r.fail(w, req, fmt.Errorf("render: unknown partial %q", name))
		return
	}
	r.execute(w, req, status, r.partials, name, data)
}

func (r *Renderer) execute(w http.ResponseWriter, req *http.Request, status int, t *template.Template, entry string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, entry, data); err != nil {
		r.fail(w, req, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (r *Renderer) fail(w http.ResponseWriter, req *http.Request, err error) {
	logger := requestctx.Logger(req.Context())
	if logger == requestctx.NoopLogger() {
		logger = r.logger
	}
	logger.Error("template render failed", zap.Error(err))
	http.Error(w, "template error", http.StatusInternalServerError)
}

// FuncMap holds the helpers available to every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"money": Money,
		"count": Count,
		"pct": func(v float64) string {
			return fmt.Sprintf("%.0f", v)
		},
		"safeCSS": func(s string) template.CSS {
			if isHexColor(s) {
				return template.CSS(s)
			}
			return template.CSS("#8CCDEB")
		},
	}
}

func isHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
