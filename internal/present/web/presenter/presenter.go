package presenter

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/stitchweb/stitch/internal/domain"
)

// Renderer holds the parsed template sets. Each page under
// templates/pages/ is compiled against the shared base layout plus all
// partials; partials alone form the fragment set mutating endpoints
// respond with.
type Renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

func NewRenderer(fsys fs.FS) (*Renderer, error) {
	fragments, err := template.ParseFS(fsys, "templates/partials/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse partials")
	}

	entries, err := fs.Glob(fsys, "templates/pages/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list pages")
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(path.Base(entry), ".html")
		t, err := template.ParseFS(fsys, "templates/base.html", entry, "templates/partials/*.html")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse page %s", name)
		}
		pages[name] = t
	}

	return &Renderer{
		pages:     pages,
		fragments: fragments,
	}, nil
}

// Page renders a full page through the base layout.
func (r *Renderer) Page(c echo.Context, status int, name string, vm any) error {
	t, ok := r.pages[name]
	if ok {
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, "base", vm); err == nil {
			return c.HTMLBlob(status, buf.Bytes())
		} else {
			fmt.Println("Render error:", err)
		}
	} else {
		fmt.Println("Render error: no such page:", name)
	}
	return c.HTML(http.StatusInternalServerError, "<p>internal error</p>")
}

// Fragment renders one partial, the unit the swap contract exchanges.
func (r *Renderer) Fragment(c echo.Context, name string, vm any) error {
	markup, err := r.FragmentString(name, vm)
	if err != nil {
		fmt.Println("Render error:", err)
		return c.HTML(http.StatusInternalServerError, "")
	}
	return c.HTML(http.StatusOK, markup)
}

// FragmentString renders a partial to markup, for caching and for the
// realtime push path.
func (r *Renderer) FragmentString(name string, vm any) (string, error) {
	var buf bytes.Buffer
	if err := r.fragments.ExecuteTemplate(&buf, name, vm); err != nil {
		return "", errors.Wrapf(err, "failed to render fragment %s", name)
	}
	return buf.String(), nil
}

// Empty answers a mutation whose target is removed outright, such as a
// delete swapped outerHTML.
func Empty(c echo.Context) error {
	return c.HTML(http.StatusOK, "")
}

// Error maps domain errors onto HTTP statuses. Fragment requests get an
// empty body so a failed exchange never swaps anything.
func Error(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	default:
		fmt.Println("Internal error:", err)
	}
	return c.HTML(status, "<p>"+template.HTMLEscapeString(err.Error())+"</p>")
}
