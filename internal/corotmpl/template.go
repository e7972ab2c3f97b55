// Package corotmpl is the template-rendering collaborator: spec.md treats
// render(template, variables) -> bytes as an external dependency of the
// default error response path. It also owns the process-wide error
// template singleton described in spec.md §9.
package corotmpl

import (
	"bytes"
	"html/template"
	"sync"
)

// ErrorVars are the variables substituted into the default error
// template, per spec.md §4.2 ("Default error response").
type ErrorVars struct {
	ShortMessage string
	LongMessage  string
}

const errorBody = `<!DOCTYPE html>
<html>
<head><title>{{.ShortMessage}}</title></head>
<body>
<h1>{{.ShortMessage}}</h1>
<p>{{.LongMessage}}</p>
</body>
</html>
`

var errorTemplate = sync.OnceValue(func() *template.Template {
	return template.Must(template.New("error").Parse(errorBody))
})

// RenderError renders the process-wide error template with vars into a
// freshly allocated byte slice. It never fails on well-formed ErrorVars
// since the template is compiled once, on first use.
func RenderError(vars ErrorVars) []byte {
	var buf bytes.Buffer
	// The template is static and vars are plain strings, so this can't
	// fail in practice; a failure here would indicate a corrupt build.
	if err := errorTemplate().Execute(&buf, vars); err != nil {
		return []byte("<html><body><h1>" + vars.ShortMessage + "</h1></body></html>")
	}
	return buf.Bytes()
}
