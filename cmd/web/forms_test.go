package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/etitcombe/workjournal"
)

func formRequest(form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestParseEntryForm(t *testing.T) {
	f, err := parseEntryForm(formRequest(formValues("2024-02-19", "work", "  Shipped X\n")))
	require.NoError(t, err)
	assert.Equal(t, actionSave, f.Action)

	e, err := f.entry()
	require.NoError(t, err)
	assert.Equal(t, "2024-02-19", e.Day())
	assert.Equal(t, app.Work, e.Type)
	assert.Equal(t, "  Shipped X\n", e.Text)
}

func TestEntryFormKeepsIndentation(t *testing.T) {
	f, err := parseEntryForm(formRequest(formValues("2024-02-19", "learning", "    code block\n")))
	require.NoError(t, err)

	e, err := f.entry()
	require.NoError(t, err)
	assert.Equal(t, "    code block\n", e.Text)
}

func TestEntryFormBlankText(t *testing.T) {
	for _, text := range []string{"", " ", "\r\n\t"} {
		f, err := parseEntryForm(formRequest(formValues("2024-02-19", "work", text)))
		require.NoError(t, err)
		_, err = f.entry()
		assert.ErrorIs(t, err, errBadRequest, "%q", text)
	}
}

func TestParseEntryFormDeleteNeedsNoFields(t *testing.T) {
	f, err := parseEntryForm(formRequest(url.Values{"_action": {"delete"}}))
	require.NoError(t, err)
	assert.Equal(t, actionDelete, f.Action)
	assert.False(t, f.Confirmed)

	f, err = parseEntryForm(formRequest(url.Values{"_action": {"delete"}, "confirm": {"yes"}}))
	require.NoError(t, err)
	assert.True(t, f.Confirmed)
}

func TestParseEntryFormMissingField(t *testing.T) {
	for _, field := range []string{"date", "type", "text"} {
		form := formValues("2024-02-19", "work", "x")
		form.Del(field)
		_, err := parseEntryForm(formRequest(form))
		assert.ErrorIs(t, err, errBadRequest, field)
	}
}

func TestParseEntryFormQueryIsIgnored(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/?date=2024-02-19&type=work&text=x", strings.NewReader(""))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	_, err := parseEntryForm(r)
	assert.ErrorIs(t, err, errBadRequest)
}

func TestParseEntryID(t *testing.T) {
	tests := []struct {
		in  string
		id  int64
		err error
	}{
		{"1", 1, nil},
		{"0042", 42, nil},
		{"", 0, errBadRequest},
		{"abc", 0, errBadRequest},
		{"-1", 0, errBadRequest},
		{"+1", 0, errBadRequest},
		{"1e3", 0, errBadRequest},
		{" 1", 0, errBadRequest},
		{"99999999999999999999", 0, app.ErrNotFound},
	}
	for _, tt := range tests {
		id, err := parseEntryID(tt.in)
		if tt.err == nil {
			assert.NoError(t, err, tt.in)
		} else {
			assert.ErrorIs(t, err, tt.err, tt.in)
		}
		assert.Equal(t, tt.id, id, tt.in)
	}
}

func TestEntryPathID(t *testing.T) {
	tests := []struct {
		path string
		id   string
		ok   bool
	}{
		{"/entries/12/edit", "12", true},
		{"/entries/abc/edit", "abc", true},
		{"/entries/12", "", false},
		{"/entries/12/", "", false},
		{"/entries/12/edit/more", "", false},
		{"/entries/", "", false},
	}
	for _, tt := range tests {
		id, ok := entryPathID(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.id, id, tt.path)
	}
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"application/json", true},
		{"text/html, application/json;q=0.9", true},
		{"text/html,application/xhtml+xml", false},
		{"", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set("Accept", tt.accept)
		assert.Equal(t, tt.want, wantsJSON(r), tt.accept)
	}
}
