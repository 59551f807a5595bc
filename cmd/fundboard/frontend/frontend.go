package frontend

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"time"

	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend/components/chart"
	"git.unix.lgbt/diamondburned/fundboard/internal/store"
	"github.com/diamondburned/tmplutil"
	"github.com/dustin/go-humanize"
)

//go:embed *
var webFS embed.FS

var Templater = tmplutil.Templater{
	FileSystem: webFS,
	Includes: map[string]string{
		"head":    "components/head/head.html",
		"nav":     "components/nav/nav.html",
		"comment": "components/comment/comment.html",
		"errbox":  "components/errbox/errbox.html",
		"rawcss":  "static/style.css",
	},
	Functions: template.FuncMap{
		"money":   store.FormatMoney,
		"reltime": humanize.Time,
		"date":    formatDate,
		"plural":  plural,
	},
}

func init() {
	// tmplutil.Log = true
	tmplutil.Preregister(&Templater)
}

// MountStatic mounts a static HTTP handler.
func MountStatic() http.Handler {
	sub, err := fs.Sub(webFS, "static")
	if err != nil {
		log.Panicln("failed to get static:", err)
	}

	return http.FileServer(http.FS(sub))
}

// WriteJSON writes v as JSON. Errors are logged into stderr.
func WriteJSON(w io.Writer, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("failed to write JSON:", err)
	}
}

func formatDate(t time.Time) string {
	return chart.FormatDate(t, time.Now(), chart.DateOpts{IncludeYear: true})
}

// plural formats n followed by the singular or plural form of a noun.
func plural(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return humanize.Comma(int64(n)) + " " + plural
}
