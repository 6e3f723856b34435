package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	app "github.com/etitcombe/workjournal"
)

const (
	actionSave   = "save"
	actionDelete = "delete"
	actionLogout = "logout"

	confirmYes = "yes"
)

var errBadRequest = errors.New("bad request")

// entryForm is the submitted entry form before validation.
type entryForm struct {
	Action string
	Date   string
	Type   string
	Text   string

	// Confirmed is set when a delete carries confirm=yes.
	Confirmed bool
}

// parseEntryForm reads the entry form fields. Each of date, type and text
// must be present exactly once; anything else is errBadRequest.
func parseEntryForm(r *http.Request) (entryForm, error) {
	if err := r.ParseForm(); err != nil {
		return entryForm{}, errBadRequest
	}

	f := entryForm{Action: formAction(r)}
	if f.Action == actionDelete {
		f.Confirmed = r.PostFormValue("confirm") == confirmYes
		return f, nil
	}

	var ok bool
	if f.Date, ok = single(r, "date"); !ok {
		return entryForm{}, errBadRequest
	}
	if f.Type, ok = single(r, "type"); !ok {
		return entryForm{}, errBadRequest
	}
	if f.Text, ok = single(r, "text"); !ok {
		return entryForm{}, errBadRequest
	}
	return f, nil
}

// entry validates the form and converts it to an Entry. No field-level detail
// is returned: any invalid field is errBadRequest.
func (f entryForm) entry() (app.Entry, error) {
	date, err := app.ParseDate(strings.TrimSpace(f.Date))
	if err != nil {
		return app.Entry{}, errBadRequest
	}
	typ, err := app.ParseEntryType(f.Type)
	if err != nil {
		return app.Entry{}, errBadRequest
	}
	if strings.TrimSpace(f.Text) == "" {
		return app.Entry{}, errBadRequest
	}
	return app.Entry{Date: date, Type: typ, Text: f.Text}, nil
}

// formAction returns the _action discriminator, defaulting to save.
func formAction(r *http.Request) string {
	if a := r.PostFormValue("_action"); a != "" {
		return a
	}
	return actionSave
}

func single(r *http.Request, field string) (string, bool) {
	vals, ok := r.PostForm[field]
	if !ok || len(vals) != 1 {
		return "", false
	}
	return vals[0], true
}

// parseEntryID accepts only a string of decimal digits; anything else is
// errBadRequest. A well-formed id too large to be stored is app.ErrNotFound.
func parseEntryID(s string) (int64, error) {
	if s == "" {
		return 0, errBadRequest
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errBadRequest
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, app.ErrNotFound
	}
	return id, nil
}

// entryPathID extracts the id segment from /entries/{id}/edit.
func entryPathID(path string) (string, bool) {
	rest := strings.TrimPrefix(path, "/entries/")
	id, suffix, found := strings.Cut(rest, "/")
	if !found || suffix != "edit" {
		return "", false
	}
	return id, true
}
