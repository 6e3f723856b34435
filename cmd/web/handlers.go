package main

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	app "github.com/etitcombe/workjournal"
	"github.com/etitcombe/workjournal/session"
)

type entryJSON struct {
	ID   int64  `json:"id"`
	Date string `json:"date"`
	Type string `json:"type"`
	Text string `json:"text"`
}

func toJSON(e app.Entry) entryJSON {
	return entryJSON{ID: e.ID, Date: e.Day(), Type: string(e.Type), Text: e.Text}
}

// wantsJSON reports whether the client asked for a JSON answer instead of a
// redirect. The form script sends Accept: application/json.
func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if mt, _, err := mime.ParseMediaType(strings.TrimSpace(part)); err == nil && mt == "application/json" {
			return true
		}
	}
	return false
}

func (s *server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func (s *server) handleIndex() http.HandlerFunc {
	create := s.requireAdmin(s.handleCreate())
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			s.renderError(w, r, http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead:
			s.showIndex(w, r)
		case http.MethodPost:
			if err := r.ParseForm(); err != nil {
				s.renderError(w, r, http.StatusBadRequest)
				return
			}
			if formAction(r) == actionLogout {
				s.logout(w, r)
				return
			}
			create.ServeHTTP(w, r)
		default:
			s.clientError(w, http.StatusMethodNotAllowed, "")
		}
	}
}

func (s *server) showIndex(w http.ResponseWriter, r *http.Request) {
	entries, err := s.entries.List(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	isAdmin := s.isAdmin(r)
	weeks := buildWeeks(app.GroupByWeek(entries), isAdmin)

	if r.URL.Query().Get("fragment") == "weeks" {
		s.renderFragment(w, r, "index", "weeks", weeks)
		return
	}

	view := listingView{Weeks: weeks}
	if isAdmin {
		view.Form = createForm(s.now())
	}
	s.render(w, r, http.StatusOK, "index", "Work Journal", view)
}

func (s *server) handleCreate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseEntryForm(r)
		if err != nil || f.Action != actionSave {
			s.renderError(w, r, http.StatusBadRequest)
			return
		}
		e, err := f.entry()
		if err != nil {
			s.renderError(w, r, http.StatusBadRequest)
			return
		}

		created, err := s.entries.Create(r.Context(), e)
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.logger.Info("entry created", zap.Int64("id", created.ID), zap.String("request_id", requestID(r.Context())))

		if wantsJSON(r) {
			s.writeJSON(w, r, http.StatusCreated, toJSON(created))
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *server) handleEntry() http.HandlerFunc {
	update := s.requireAdmin(s.handleUpdate())
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			s.showEdit(w, r)
		case http.MethodPost:
			update.ServeHTTP(w, r)
		default:
			s.clientError(w, http.StatusMethodNotAllowed, "")
		}
	}
}

// lookupEntry resolves /entries/{id}/edit to a stored entry. It writes the
// error response itself and returns false when the request should stop.
func (s *server) lookupEntry(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw, ok := entryPathID(r.URL.Path)
	if !ok {
		s.renderError(w, r, http.StatusNotFound)
		return 0, false
	}
	id, err := parseEntryID(raw)
	switch {
	case errors.Is(err, app.ErrNotFound):
		s.renderError(w, r, http.StatusNotFound)
		return 0, false
	case err != nil:
		s.renderError(w, r, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *server) showEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupEntry(w, r)
	if !ok {
		return
	}

	e, err := s.entries.Get(r.Context(), id)
	if errors.Is(err, app.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	view := editView{Entry: e, HTML: renderText(e.Text)}
	if s.isAdmin(r) {
		view.Form = editForm(e)
	}
	s.render(w, r, http.StatusOK, "edit", "Edit entry", view)
}

func (s *server) handleUpdate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.lookupEntry(w, r)
		if !ok {
			return
		}

		f, err := parseEntryForm(r)
		if err != nil {
			s.renderError(w, r, http.StatusBadRequest)
			return
		}

		switch f.Action {
		case actionDelete:
			if !f.Confirmed {
				s.confirmDelete(w, r, id)
				return
			}
			s.deleteEntry(w, r, id)
		case actionSave:
			s.updateEntry(w, r, id, f)
		default:
			s.renderError(w, r, http.StatusBadRequest)
		}
	}
}

func (s *server) updateEntry(w http.ResponseWriter, r *http.Request, id int64, f entryForm) {
	e, err := f.entry()
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}
	e.ID = id

	updated, err := s.entries.Update(r.Context(), e)
	if errors.Is(err, app.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.logger.Info("entry updated", zap.Int64("id", id), zap.String("request_id", requestID(r.Context())))

	if wantsJSON(r) {
		s.writeJSON(w, r, http.StatusOK, toJSON(updated))
		return
	}
	http.Redirect(w, r, editURL(id), http.StatusSeeOther)
}

// confirmDelete shows a confirmation page for a delete that arrived without
// confirm=yes, which is how the plain HTML form submits when scripts are off.
func (s *server) confirmDelete(w http.ResponseWriter, r *http.Request, id int64) {
	if wantsJSON(r) {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	e, err := s.entries.Get(r.Context(), id)
	if errors.Is(err, app.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "delete", "Delete entry", deleteView{Entry: e, HTML: renderText(e.Text), Action: editURL(id)})
}

func (s *server) deleteEntry(w http.ResponseWriter, r *http.Request, id int64) {
	err := s.entries.Delete(r.Context(), id)
	if errors.Is(err, app.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.logger.Info("entry deleted", zap.Int64("id", id), zap.String("request_id", requestID(r.Context())))

	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			s.render(w, r, http.StatusOK, "login", "Login", loginView{})
		case http.MethodPost:
			s.login(w, r)
		default:
			s.clientError(w, http.StatusMethodNotAllowed, "")
		}
	}
}

type loginView struct {
	Failed bool
	Email  string
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	err := s.admins.Authenticate(email, password)
	if errors.Is(err, app.ErrInvalidCredentials) {
		s.logger.Info("login failed", zap.String("request_id", requestID(r.Context())))
		s.render(w, r, http.StatusUnauthorized, "login", "Login", loginView{Failed: true, Email: email})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if err := s.sessions.Commit(w, session.Session{IsAdmin: true}); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.logger.Info("admin logged in", zap.String("request_id", requestID(r.Context())))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.clientError(w, http.StatusMethodNotAllowed, "")
			return
		}
		s.logout(w, r)
	}
}

// logout clears the session cookie whether or not a session exists.
func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Destroy(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			s.clientError(w, http.StatusMethodNotAllowed, "")
			return
		}

		n, err := s.entries.Count(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, struct {
			Status  string `json:"status"`
			Entries int    `json:"entries"`
		}{"ok", n})
	}
}
