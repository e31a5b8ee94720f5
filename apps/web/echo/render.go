package echoweb

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

const (
	templatesDir    = "templates/web"
	flashCookieName = "campus_flash"
	flashMaxAge     = 60 // seconds
)

// Flash kinds
const (
	flashSuccess = "success"
	flashError   = "error"
	flashInfo    = "info"
)

var nowFunc = time.Now // mockable

type (
	// renderer executes one template set per page, each made of the shared partials plus the page.
	renderer struct {
		pages map[string]*template.Template
	}

	// viewer is the signed-in person as shown in page headers.
	viewer struct {
		ID      string
		Email   string
		Name    string
		IsAdmin bool
	}

	flash struct {
		Kind    string `json:"k"`
		Message string `json:"m"`
	}

	// page is the data every template receives.
	page struct {
		AppName string
		Viewer  *viewer
		Flash   *flash
		CSRF    string
		Data    interface{}
	}
)

var _ echo.Renderer = (*renderer)(nil)

var templateFuncs = template.FuncMap{
	"relativeDate": func(t time.Time) string { return relativeDate(t, nowFunc()) },
	"fullDate":     fullDate,
}

// newRenderer parses every page under dir of fsys. Files starting with "_" are partials.
func newRenderer(fsys fs.FS, dir string) (*renderer, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading templates dir")
	}

	var partials, pages []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".gohtml" {
			continue
		}
		if strings.HasPrefix(e.Name(), "_") {
			partials = append(partials, path.Join(dir, e.Name()))
		} else {
			pages = append(pages, path.Join(dir, e.Name()))
		}
	}

	root, err := template.New("").Funcs(templateFuncs).ParseFS(fsys, partials...)
	if err != nil {
		return nil, errors.Wrap(err, "parsing partials")
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		tmpl, err := root.Clone()
		if err != nil {
			return nil, errors.Wrap(err, "cloning partials")
		}
		if _, err = tmpl.ParseFS(fsys, p); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", p)
		}
		r.pages[strings.TrimSuffix(path.Base(p), ".gohtml")] = tmpl
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return errors.Errorf("unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// render fills the common page fields and renders the named page.
func (s *Server) render(ctx echo.Context, code int, name string, data interface{}) error {
	p := page{
		AppName: s.deps.Conf.AppName,
		Flash:   popFlash(ctx),
		Data:    data,
	}
	if v, ok := ctx.Get(ctxViewerKey).(*viewer); ok {
		p.Viewer = v
	}
	if token, ok := ctx.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
		p.CSRF = token
	}
	return ctx.Render(code, name, p)
}

func setFlash(ctx echo.Context, kind, msg string) {
	raw, _ := json.Marshal(flash{Kind: kind, Message: msg})
	ctx.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash, if any, and clears it.
func popFlash(ctx echo.Context) *flash {
	cookie, err := ctx.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	ctx.SetCookie(&http.Cookie{Name: flashCookieName, Path: "/", MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var f flash
	if err = json.Unmarshal(raw, &f); err != nil || f.Message == "" {
		return nil
	}
	return &f
}

// relativeDate formats t as Today, Yesterday, "N days ago" within a week, else as a full date.
func relativeDate(t, now time.Time) string {
	diff := now.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	switch days := int(diff / (24 * time.Hour)); {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return fullDate(t)
	}
}

func fullDate(t time.Time) string {
	return t.Format("January 2, 2006")
}
