package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	platformconfig "github.com/qolzam/feed/internal/platform/config"
)

// ShouldRunDatabaseTests checks if database tests should be executed.
func ShouldRunDatabaseTests() bool {
	return os.Getenv("RUN_DB_TESTS") == "1"
}

// NewTestConfig builds an in-memory configuration trusting publicKeyPEM.
// overrides take precedence over the test defaults.
func NewTestConfig(t *testing.T, publicKeyPEM string, overrides map[string]string) *platformconfig.Config {
	t.Helper()

	env := map[string]string{
		"JWT_PUBLIC_KEY": publicKeyPEM,
		"DB_TYPE":        platformconfig.DatabaseTypeMemory,
		"CACHE_ENABLED":  "true",
		"CACHE_BACKEND":  "memory",
	}
	for k, v := range overrides {
		env[k] = v
	}

	cfg, err := platformconfig.LoadFromMap(env)
	require.NoError(t, err)
	return cfg
}

// PostgresTestConfig reads the POSTGRES_* variables of the test environment.
func PostgresTestConfig(t *testing.T) *platformconfig.Config {
	t.Helper()
	return NewTestConfig(t, "unused", map[string]string{
		"DB_TYPE":           platformconfig.DatabaseTypePostgres,
		"POSTGRES_HOST":     os.Getenv("POSTGRES_HOST"),
		"POSTGRES_PORT":     os.Getenv("POSTGRES_PORT"),
		"POSTGRES_USERNAME": os.Getenv("POSTGRES_USERNAME"),
		"POSTGRES_PASSWORD": os.Getenv("POSTGRES_PASSWORD"),
		"POSTGRES_DATABASE": os.Getenv("POSTGRES_DATABASE"),
	})
}
