// Package web serves the server-rendered pages: the session list, the voting
// form, results, and the login/register forms. Templates are embedded into
// the binary.
package web

import (
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mergestat/timediff"

	"github.com/mkarlsv/votify/api/auth"
	"github.com/mkarlsv/votify/cache"
	"github.com/mkarlsv/votify/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses the embedded page templates with the render helpers the
// pages use.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"timeago": func(t time.Time) string {
			return timediff.TimeDiff(t)
		},
		"comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
		"datetime": func(t time.Time) string {
			return t.Format("Jan 2, 2006 15:04 MST")
		},
		// the value format of <input type="datetime-local">
		"datelocal": func(t time.Time) string {
			return t.Format("2006-01-02T15:04")
		},
		"join": strings.Join,
	}).ParseFS(templatesFS, "templates/*.html")
}

// Pages renders the server-side views.
type Pages struct {
	store    *store.Store
	sessions *cache.Sessions
	auth     *auth.Middleware
}

// New creates the page handlers.
func New(st *store.Store, sessions *cache.Sessions, authMw *auth.Middleware) *Pages {
	return &Pages{
		store:    st,
		sessions: sessions,
		auth:     authMw,
	}
}
