package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	app "github.com/etitcombe/workjournal"
	"github.com/etitcombe/workjournal/db"
	"github.com/etitcombe/workjournal/session"
)

const testCookieName = "journal-session"

var csrfFieldRe = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

// testApp is a running server with a browser-like client: it keeps cookies
// and does not follow redirects.
type testApp struct {
	t      *testing.T
	ts     *httptest.Server
	client *http.Client
	jar    *cookiejar.Jar
	store  *db.EntryStore
}

type response struct {
	*http.Response
	Body string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	srv, store := newTestServer(t, serverOptions{CSRFKey: testCSRFKey})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testApp{
		t:  t,
		ts: ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		jar:   jar,
		store: store,
	}
}

var testCSRFKey = bytes.Repeat([]byte("k"), 32)

// newTestServer builds a server backed by a fresh database and an admin
// account test@test.com / password.
func newTestServer(t *testing.T, opts serverOptions) (*server, *db.EntryStore) {
	t.Helper()

	store, err := db.NewEntryStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { store.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	admins, err := db.NewAdminStore("test@test.com", string(hash), "")
	require.NoError(t, err)

	sessions, err := session.NewCodec(session.Options{Name: testCookieName, Secrets: []string{"test-secret"}})
	require.NoError(t, err)

	return newServer(zaptest.NewLogger(t), store, admins, sessions, opts), store
}

func (a *testApp) do(req *http.Request) response {
	a.t.Helper()
	res, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(a.t, err)
	return response{Response: res, Body: string(body)}
}

func (a *testApp) get(path string) response {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.ts.URL+path, nil)
	require.NoError(a.t, err)
	return a.do(req)
}

// token fetches a page that always carries a CSRF field: the login form for
// visitors, the logout form in the layout for admins.
func (a *testApp) token() string {
	a.t.Helper()
	res := a.get("/login")
	m := csrfFieldRe.FindStringSubmatch(res.Body)
	require.NotNil(a.t, m, "no csrf field in:\n%s", res.Body)
	return m[1]
}

func (a *testApp) post(path string, form url.Values, header ...string) response {
	a.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("gorilla.csrf.Token", a.token())
	return a.postRaw(path, form, header...)
}

// postRaw posts form as-is, without adding a CSRF token.
func (a *testApp) postRaw(path string, form url.Values, header ...string) response {
	a.t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return a.do(req)
}

func (a *testApp) login() {
	a.t.Helper()
	res := a.post("/login", url.Values{"email": {"test@test.com"}, "password": {"password"}})
	require.Equal(a.t, http.StatusSeeOther, res.StatusCode)
	require.True(a.t, a.hasSession())
}

func (a *testApp) hasSession() bool {
	u, err := url.Parse(a.ts.URL)
	require.NoError(a.t, err)
	for _, c := range a.jar.Cookies(u) {
		if c.Name == testCookieName && c.Value != "" {
			return true
		}
	}
	return false
}

func (a *testApp) seed(date string, typ app.EntryType, text string) app.Entry {
	a.t.Helper()
	d, err := app.ParseDate(date)
	require.NoError(a.t, err)
	e, err := a.store.Create(context.Background(), app.Entry{Date: d, Type: typ, Text: text})
	require.NoError(a.t, err)
	return e
}

func (a *testApp) count() int {
	a.t.Helper()
	n, err := a.store.Count(context.Background())
	require.NoError(a.t, err)
	return n
}

func formValues(date, typ, text string) url.Values {
	return url.Values{"date": {date}, "type": {typ}, "text": {text}}
}
