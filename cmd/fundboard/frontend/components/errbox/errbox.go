// Package errbox renders errors in place of the content that failed.
package errbox

import (
	"html/template"
	"io"
	"strings"

	"git.unix.lgbt/diamondburned/fundboard/cmd/fundboard/frontend"
)

var errbox = frontend.Templater.Subtemplate("errbox")

func init() {
	frontend.Templater.Func("errorBox", Render)
	frontend.Templater.OnRenderFail(func(w io.Writer, _ string, err error) {
		errbox.Execute(w, err)
	})
}

// Render renders err into an error box. A nil error renders nothing.
func Render(err error) template.HTML {
	if err == nil {
		return ""
	}

	var b strings.Builder
	errbox.Execute(&b, err)

	return template.HTML(b.String())
}
