package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	app "github.com/etitcombe/workjournal"
	"github.com/etitcombe/workjournal/db"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSecretCmd(t *testing.T) {
	out, err := execute(t, "secret")
	require.NoError(t, err)

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, key, 32)

	other, err := execute(t, "secret")
	require.NoError(t, err)
	assert.NotEqual(t, out, other)
}

func TestSecretCmdRejectsBadSize(t *testing.T) {
	_, err := execute(t, "secret", "--bytes=0")
	assert.Error(t, err)
}

func TestHashPasswordCmd(t *testing.T) {
	out, err := execute(t, "hash-password", "--password=fancy-password", "--cost=4")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("fancy-password")))

	// The hash is what the web app's admin store expects.
	s, err := db.NewAdminStore("me@example.com", hash, "")
	require.NoError(t, err)
	assert.NoError(t, s.Authenticate("me@example.com", "fancy-password"))
}

func TestHashPasswordCmdRequiresPassword(t *testing.T) {
	_, err := execute(t, "hash-password")
	assert.Error(t, err)
}

func TestWeeksCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := db.NewEntryStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Open())

	for _, e := range []struct {
		date string
		typ  app.EntryType
		text string
	}{
		{"2024-02-23", app.Work, "Shipped X"},
		{"2024-02-19", app.Learning, "Read about WAL"},
		{"2024-02-26", app.Work, "Planned Y"},
	} {
		d, err := app.ParseDate(e.date)
		require.NoError(t, err)
		_, err = store.Create(context.Background(), app.Entry{Date: d, Type: e.typ, Text: e.text})
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	out, err := execute(t, "weeks", "--db", path)
	require.NoError(t, err)

	want := `Week of 2024-02-19
  Work
    - [1] 2024-02-23 Shipped X
  Learnings
    - [2] 2024-02-19 Read about WAL

Week of 2024-02-26
  Work
    - [3] 2024-02-26 Planned Y
`
	assert.Equal(t, want, out)
}

func TestWeeksCmdMissingDatabase(t *testing.T) {
	_, err := execute(t, "weeks", "--db", filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}
