package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// PostgresDSNEnv names the environment variable holding the DSN of the
// database used by integration tests.
const PostgresDSNEnv = "GRAPHKV_POSTGRES_DSN"

// MySQLDSNEnv names the environment variable holding the DSN of the MySQL
// database used by integration tests, e.g. user:pass@tcp(localhost:3306)/graphkv.
const MySQLDSNEnv = "GRAPHKV_MYSQL_DSN"

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// PostgresDSN returns the integration database DSN, skipping the test when
// it is not configured.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	IntegrationTest(t)
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}
	return dsn
}

// MySQLDSN is PostgresDSN for the MySQL integration database.
func MySQLDSN(t *testing.T) string {
	t.Helper()
	IntegrationTest(t)
	dsn := os.Getenv(MySQLDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", MySQLDSNEnv)
	}
	return dsn
}

// TestEnvironment represents a test environment
type TestEnvironment struct {
	t       *testing.T
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
}

// NewTestEnvironment creates a test environment that is torn down when the
// test completes.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	env := &TestEnvironment{
		t:       t,
		ctx:     ctx,
		cancel:  cancel,
		tempDir: t.TempDir(),
	}
	t.Cleanup(cancel)
	return env
}

// Context returns the test context
func (e *TestEnvironment) Context() context.Context {
	return e.ctx
}

// TempDir returns the temporary directory
func (e *TestEnvironment) TempDir() string {
	return e.tempDir
}

// WriteFile creates a file with content in the temporary directory and
// returns its path.
func (e *TestEnvironment) WriteFile(name string, content []byte) string {
	e.t.Helper()
	path := filepath.Join(e.tempDir, name)
	require.NoError(e.t, os.WriteFile(path, content, 0o600))
	return path
}
