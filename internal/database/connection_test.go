package database

import (
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prajwalbharadwajbm/bidengine/internal/config"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "bid",
		Password: "p@ss word",
		SSLMode:  "require",
	}

	dsn := DSN(cfg, "bidengine")
	u, err := url.Parse(dsn)
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.internal:5433", u.Host)
	assert.Equal(t, "/bidengine", u.Path)
	assert.Equal(t, "bid", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss word", password)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestMigrationFilesArePaired(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, f := range files {
		base := filepath.Base(f)
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			ups[strings.TrimSuffix(base, ".up.sql")] = true
		case strings.HasSuffix(base, ".down.sql"):
			downs[strings.TrimSuffix(base, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", base)
		}
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.NotZero(t, info.Size(), base)
	}

	names := make([]string, 0, len(ups))
	for name := range ups {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		assert.True(t, downs[name], "missing down migration for %s", name)
	}
	assert.Equal(t, len(ups), len(downs))
}

// spend accumulates cost = cpm/1000, so the spend columns need three more
// places than cpm_bid or Postgres rounds each increment.
func TestMigrationSpendColumnsHoldPerImpressionCost(t *testing.T) {
	up, err := os.ReadFile(filepath.Join("..", "..", "migrations", "000003_widen_spend_scale.up.sql"))
	require.NoError(t, err)
	sql := string(up)

	for _, column := range []string{"spent_today", "lifetime_spent"} {
		assert.Contains(t, sql, "ALTER COLUMN "+column+" TYPE NUMERIC(20, 7)")
	}
}
