package mailer

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
)

//go:embed templates
var embedded embed.FS

const templateExtension = ".django"

// Renderer turns a template name plus params into the text and HTML
// bodies of a message. A template name such as "auth/email/confirm"
// resolves to confirm.txt.django and confirm.html.django.
type Renderer struct {
	engine *django.Engine
}

// NewRenderer loads templates from fsys. A nil fsys uses the embedded
// templates.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	if fsys == nil {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to scope embedded templates")
		}
		fsys = sub
	}

	engine := django.NewFileSystem(http.FS(fsys), templateExtension)
	if err := engine.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load mail templates")
	}
	return &Renderer{engine: engine}, nil
}

// Render returns the text body and the HTML body. The HTML variant is
// optional, a missing text variant is an error.
func (r *Renderer) Render(name string, params map[string]any) (text string, html string, err error) {
	if params == nil {
		params = map[string]any{}
	}

	text, err = r.render(name+".txt", params)
	if err != nil {
		return "", "", err
	}

	html, err = r.render(name+".html", params)
	if err != nil {
		html = ""
	}
	return text, html, nil
}

func (r *Renderer) render(name string, params map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, params); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render mail template").
			WithMetadata(map[string]any{"template": name})
	}
	return buf.String(), nil
}
