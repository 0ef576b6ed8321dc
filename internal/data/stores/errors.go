package stores

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/colonyops/inbox/internal/data/db"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var corruptCodes = []int{
	sqlite3.SQLITE_CORRUPT,
	sqlite3.SQLITE_NOTADB,
	sqlite3.SQLITE_CANTOPEN,
}

var corruptMessages = []string{
	"database disk image is malformed",
	"file is not a database",
	"database corruption",
}

// IsCorruptionError reports whether err means the database file is unusable
// and should be moved aside.
func IsCorruptionError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return slices.Contains(corruptCodes, sqliteErr.Code())
	}

	msg := err.Error()
	return slices.ContainsFunc(corruptMessages, func(s string) bool {
		return strings.Contains(msg, s)
	})
}

// IsNotFoundError reports whether err is a missing-row error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// RecoverFromCorruption renames the database and its WAL and SHM sidecars to
// <file>.corrupt.<timestamp> so the next Open starts from an empty schema.
// Missing files are skipped. A sidecar that cannot be renamed is removed,
// since SQLite would replay a stale WAL into the new file.
func RecoverFromCorruption(dataDir string) error {
	dbPath := filepath.Join(dataDir, db.FileName)
	backup := fmt.Sprintf("%s.corrupt.%s", dbPath, time.Now().Format("20060102-150405"))

	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Rename(dbPath+suffix, backup+suffix)
		switch {
		case err == nil, errors.Is(err, os.ErrNotExist):
			continue
		case suffix == "":
			return fmt.Errorf("move corrupt database aside: %w", err)
		}

		if rmErr := os.Remove(dbPath + suffix); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("clear %s file: %w", strings.TrimPrefix(suffix, "-"), errors.Join(err, rmErr))
		}
	}
	return nil
}
