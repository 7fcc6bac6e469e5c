// Package views renders the embedded html templates. Layouts and partials
// are parsed once; each page is parsed onto a clone of that base per render.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/lojf/quizdesk/internal/lifecycle"
)

//go:embed templates
var files embed.FS

type Views struct {
	base *template.Template
	loc  *time.Location
	now  func() time.Time
}

func New(loc *time.Location) (*Views, error) {
	v := &Views{loc: loc, now: time.Now}

	p := template.New("").Funcs(v.funcs())
	p, err := p.ParseFS(files, "templates/layouts/*.tmpl", "templates/partials/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}
	v.base = p
	return v, nil
}

func Must(v *Views, err error) *Views {
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Views) Location() *time.Location { return v.loc }

// Render executes page inside the base layout. Output is buffered so a
// template error still produces a clean 500.
func (v *Views) Render(w http.ResponseWriter, status int, page string, data map[string]any) error {
	view, err := v.base.Clone()
	if err != nil {
		return err
	}
	if _, err := view.ParseFS(files, path.Join("templates/pages", page)); err != nil {
		return fmt.Errorf("parse %s: %w", page, err)
	}

	var buf bytes.Buffer
	if err := view.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("execute %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

func (v *Views) funcs() template.FuncMap {
	loc := v.loc
	return template.FuncMap{
		"year":        func() string { return v.now().In(loc).Format("2006") },
		"fmtDate":     func(t time.Time) string { return t.In(loc).Format("Mon, 02 Jan 2006") },
		"fmtTime":     func(t time.Time) string { return t.In(loc).Format("15:04") },
		"fmtDateTime": func(t time.Time) string { return t.In(loc).Format("Mon, 02 Jan 2006 15:04") },
		"inputTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("2006-01-02T15:04")
		},
		"status": func(start, end time.Time) lifecycle.Status {
			return lifecycle.Derive(v.now(), start, end)
		},
		"clock": lifecycle.FormatClock,
		"add":   func(a, b int) int { return a + b },
		"nl2br": func(s string) template.HTML {
			if s == "" {
				return ""
			}
			ss := html.UnescapeString(strings.TrimSpace(s))
			ss = strings.ReplaceAll(ss, "\r\n", "\n")
			ss = strings.ReplaceAll(ss, "\\n", "\n")
			esc := html.EscapeString(ss)
			esc = strings.ReplaceAll(esc, "\n", "<br>")
			return template.HTML(esc)
		},
	}
}
