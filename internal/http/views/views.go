// views рендерит HTML-страницы из встроенных шаблонов.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/pribylovaa/roster-share/internal/service"
)

//go:embed templates/*.html
var files embed.FS

// Имена страниц.
const (
	PageLogin = "login"
	PageAdmin = "admin"
	PageShare = "share"
)

// Base - общие поля всех страниц.
type Base struct {
	Authenticated bool
}

// LoginPage - данные страницы входа.
type LoginPage struct {
	Base
	Username string
	Error    string
	Notice   string
}

// AdminPage - данные панели администратора.
type AdminPage struct {
	Base
	UserID string
	Link   string
	Error  string
}

// SharePage - данные публичной страницы ростера.
type SharePage struct {
	Base
	View  *service.RosterView
	Error string
}

// Renderer держит разобранные шаблоны страниц.
type Renderer struct {
	pages map[string]*template.Template
}

// New разбирает встроенные шаблоны.
func New() (*Renderer, error) {
	const op = "views.New"

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageLogin, PageAdmin, PageShare} {
		t, err := template.ParseFS(files, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", op, page, err)
		}
		r.pages[page] = t
	}

	return r, nil
}

// Render выполняет шаблон в буфер и только затем пишет ответ,
// чтобы ошибка шаблона не оставила полустраницу со статусом 200.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	const op = "views.Render"

	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("%s: unknown page %q", op, page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)

	return err
}
