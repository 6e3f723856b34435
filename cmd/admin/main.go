package main

import (
	"os"
)

/*
How to configure the web application's admin account and secrets.

1. > ./admin secret
CPjaot8hYLXpm4xIaXHWsQKJWkelY3msP6AbR8wYmrE=
[use it as COOKIE_AUTH_SECRET; run again for JOURNAL_CSRF_KEY]
2. > ./admin hash-password --password=fancy-password
$2a$10$r1sE9VECMqhjaikC2z5/iOaSwCDGlVOe4PLwDjJzKLT7iY1QDkF3.
[use it as JOURNAL_ADMIN_PASSWORD_HASH or admin.password_hash in .config.yaml]
3. > ./admin weeks --db ./database/journal.db
[prints the weekly listing of a journal database]
*/

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
