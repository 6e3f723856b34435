package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	app "github.com/etitcombe/workjournal"
	"github.com/etitcombe/workjournal/db"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "Operator tasks for the work journal",
		SilenceUsage: true,
	}
	root.AddCommand(newSecretCmd(), newHashPasswordCmd(), newWeeksCmd())
	return root
}

func newSecretCmd() *cobra.Command {
	var size int
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Print a random base64 key for COOKIE_AUTH_SECRET or JOURNAL_CSRF_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateSecret(cmd.OutOrStdout(), size)
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 32, "number of random bytes")
	return cmd
}

func generateSecret(w io.Writer, size int) error {
	if size <= 0 {
		return fmt.Errorf("bytes must be positive, got %d", size)
	}
	key := securecookie.GenerateRandomKey(size)
	if key == nil {
		return errors.New("cannot read random bytes")
	}
	_, err := fmt.Fprintln(w, base64.StdEncoding.EncodeToString(key))
	return err
}

func newHashPasswordCmd() *cobra.Command {
	var (
		password string
		cost     int
	)
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for JOURNAL_ADMIN_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return hashPassword(cmd.OutOrStdout(), password, cost)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "the password to hash [required]")
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	cmd.MarkFlagRequired("password")
	return cmd
}

func hashPassword(w io.Writer, password string, cost int) error {
	if password == "" {
		return errors.New("password required")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(hashedBytes))
	return err
}

func newWeeksCmd() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "weeks",
		Short: "Print the entries of a journal database grouped by week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(dsn); err != nil {
				return err
			}
			store, err := db.NewEntryStore(dsn)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Open(); err != nil {
				return err
			}

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return printWeeks(cmd.OutOrStdout(), app.GroupByWeek(entries))
		},
	}
	cmd.Flags().StringVar(&dsn, "db", "./database/journal.db", "path to the journal database")
	return cmd
}

func printWeeks(w io.Writer, weeks []app.WeekBucket) error {
	for i, week := range weeks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Week of %s\n", week.WeekStart)
		for _, t := range app.EntryTypes {
			entries := week.ByType(t)
			if len(entries) == 0 {
				continue
			}
			fmt.Fprintf(w, "  %s\n", t.Title())
			for _, e := range entries {
				if _, err := fmt.Fprintf(w, "    - [%d] %s %s\n", e.ID, e.Day(), e.Text); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
