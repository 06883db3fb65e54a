package config

import (
	"strconv"
	"testing"
)

// SetTestDatabaseConfigEnvs points the DB_* environment variables at a
// locally running container on the given port. t.Setenv automatically
// restores the previous values when the test finishes.
func SetTestDatabaseConfigEnvs(t *testing.T, port int) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", strconv.Itoa(port))
	t.Setenv("DB_NAME", "paperkg")
	t.Setenv("DB_USER", "paperkg")
	t.Setenv("DB_PASSWORD", "paperkg")
	t.Setenv("DB_SCHEMA", "public")
	t.Setenv("DB_SSLMODE", "disable")
}
