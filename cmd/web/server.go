package main

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	app "github.com/etitcombe/workjournal"
	"github.com/etitcombe/workjournal/session"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

type contextKey string

const (
	sessionKey   contextKey = "session"
	requestIDKey contextKey = "request-id"
)

type server struct {
	logger *zap.Logger

	router http.Handler

	entries  app.EntryStore
	admins   app.Authenticator
	sessions *session.Codec

	csrfKey    []byte
	secureCSRF bool

	templateCache map[string]*template.Template

	now func() time.Time
}

type serverOptions struct {
	// CSRFKey must be 32 bytes.
	CSRFKey []byte
	Secure  bool
}

type viewModel struct {
	Title     string
	IsAdmin   bool
	CSRFField template.HTML
	Yield     interface{}
}

func newServer(logger *zap.Logger, entries app.EntryStore, admins app.Authenticator, sessions *session.Codec, opts serverOptions) *server {
	srv := &server{
		logger:     logger,
		entries:    entries,
		admins:     admins,
		sessions:   sessions,
		csrfKey:    opts.CSRFKey,
		secureCSRF: opts.Secure,
		now:        time.Now,
	}
	srv.parseTemplates()
	srv.registerRoutes()
	return srv
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *server) clientError(w http.ResponseWriter, status int, message string) {
	errorMessage := http.StatusText(status)
	if message != "" {
		errorMessage += ": " + message
	}
	http.Error(w, errorMessage, status)
}

func (s *server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	trace := fmt.Sprintf("%s\n%s", err.Error(), debug.Stack())
	s.logger.Error("server error",
		zap.Error(err),
		zap.String("request_id", requestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Stack("stack"),
	)

	errorMessage := http.StatusText(http.StatusInternalServerError)
	if s.isAdmin(r) {
		errorMessage += "\n" + trace
	}
	http.Error(w, errorMessage, http.StatusInternalServerError)
}

func (s *server) currentSession(r *http.Request) session.Session {
	if temp := r.Context().Value(sessionKey); temp != nil {
		if val, ok := temp.(session.Session); ok {
			return val
		}
		s.logger.Error("session context value has the wrong type", zap.Any("value", temp))
	}
	return session.Session{}
}

func (s *server) isAdmin(r *http.Request) bool {
	return s.currentSession(r).IsAdmin
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// parseTemplates builds one template set per page: the layout, the shared
// partials, and the page itself.
func (s *server) parseTemplates() {
	cache := map[string]*template.Template{}
	for _, name := range []string{"index", "edit", "delete", "login", "error"} {
		cache[name] = template.Must(template.New(name).ParseFS(templateFS,
			"templates/layout.gohtml",
			"templates/partials/*.gohtml",
			"templates/"+name+".gohtml",
		))
	}
	s.templateCache = cache
}

func (s *server) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data interface{}) {
	vm := viewModel{
		Title:     title,
		IsAdmin:   s.isAdmin(r),
		CSRFField: csrf.TemplateField(r),
		Yield:     data,
	}
	s.execute(w, r, status, name, "layout", vm)
}

// renderFragment executes a single named block of a page, without the layout.
func (s *server) renderFragment(w http.ResponseWriter, r *http.Request, name, block string, data interface{}) {
	s.execute(w, r, http.StatusOK, name, block, data)
}

func (s *server) execute(w http.ResponseWriter, r *http.Request, status int, name, block string, data interface{}) {
	ts, ok := s.templateCache[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("template %s does not exist", name))
		return
	}

	buf := bytes.Buffer{}
	if err := ts.ExecuteTemplate(&buf, block, data); err != nil {
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError shows the error page for a terminal client or auth failure.
func (s *server) renderError(w http.ResponseWriter, r *http.Request, status int) {
	s.render(w, r, status, "error", "Whoops!", struct {
		Status     int
		StatusText string
	}{status, http.StatusText(status)})
}

func staticFiles() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
