package whatsapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DatastoreConfig locates the whatsmeow credential store. The store itself
// is owned by whatsmeow; this package only opens it.
type DatastoreConfig struct {
	Type       string
	URI        string
	SessionDir string
}

func normalizeDatastoreDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3", "file":
		return "sqlite"
	case "postgresql", "postgres", "pq":
		return "postgres"
	case "pgx":
		return "pgx"
	default:
		return strings.ToLower(driver)
	}
}

func normalizeDatastoreDSN(driver string, dsn string, sessionDir string) string {
	appendParam := func(current string, param string) string {
		switch {
		case !strings.Contains(current, "?"):
			return current + "?" + param
		case strings.HasSuffix(current, "?"), strings.HasSuffix(current, "&"):
			return current + param
		default:
			return current + "&" + param
		}
	}

	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = "file:" + filepath.Join(sessionDir, "session.db")
		}
		if !strings.Contains(dsn, "foreign_keys") {
			dsn = appendParam(dsn, "_pragma=foreign_keys(1)")
		}
		if !strings.Contains(dsn, "busy_timeout") {
			dsn = appendParam(dsn, "_pragma=busy_timeout(5000)")
		}
		return dsn
	case "pgx":
		if !strings.Contains(dsn, "default_query_exec_mode=") {
			dsn = appendParam(dsn, "default_query_exec_mode=simple_protocol")
		}
		return dsn
	default:
		return dsn
	}
}

// OpenDatastore opens (and upgrades) the whatsmeow session store.
func OpenDatastore(ctx context.Context, cfg DatastoreConfig, logger waLog.Logger) (*sqlstore.Container, error) {
	driver := normalizeDatastoreDriver(cfg.Type)
	if driver == "sqlite" {
		if err := os.MkdirAll(cfg.SessionDir, 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	} else if strings.TrimSpace(cfg.URI) == "" {
		return nil, fmt.Errorf("WHATSAPP_DATASTORE_URI is required for driver %s", driver)
	}
	dsn := normalizeDatastoreDSN(driver, strings.TrimSpace(cfg.URI), cfg.SessionDir)

	container, err := sqlstore.New(ctx, driver, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s datastore: %w", driver, err)
	}
	return container, nil
}
