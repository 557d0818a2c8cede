// Package sqliteutil holds small DSN helpers shared by sqlite-backed stores.
package sqliteutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsurePragmas appends connection pragmas to the DSN when missing. WAL mode
// is paired with synchronous NORMAL, the recommended setting for WAL. The
// function is a no-op for in-memory databases, which have no journal.
func EnsurePragmas(dsn string, wal bool, busyTimeoutMS int) string {
	if dsn == "" {
		return dsn
	}
	lower := strings.ToLower(dsn)
	if dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:") {
		return dsn
	}
	if wal {
		if !strings.Contains(lower, "_pragma=journal_mode") {
			dsn = addPragma(dsn, "journal_mode(WAL)")
		}
		if !strings.Contains(lower, "_pragma=synchronous") {
			dsn = addPragma(dsn, "synchronous(NORMAL)")
		}
	}
	if busyTimeoutMS > 0 && !strings.Contains(lower, "_pragma=busy_timeout") {
		dsn = addPragma(dsn, fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	}
	return dsn
}

// EnsureDir creates the parent directory of a file-backed DSN. The sqlite
// driver does not create missing directories, so a fresh default path would
// otherwise fail to open. In-memory DSNs are left alone.
func EnsureDir(dsn string) error {
	if dsn == "" {
		return nil
	}
	path := dsn
	lower := strings.ToLower(path)
	if path == ":memory:" || strings.HasPrefix(lower, "file::memory:") {
		return nil
	}
	path = strings.TrimPrefix(path, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func addPragma(dsn, pragma string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=" + pragma
}
