package workflow

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/paperkg/paperkg/internal/config"
	"github.com/paperkg/paperkg/internal/testdb"
	"github.com/paperkg/paperkg/store"
)

var dbPort int

func TestMain(m *testing.M) {
	var teardown func(ctx context.Context, opts ...testcontainers.TerminateOption) error
	var err error
	teardown, dbPort, err = testdb.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("error starting postgres container: %v", err)
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("error tearing down postgres container: %v", err)
		}
	}

	os.Exit(code)
}

type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32((len(text)+i)%100) / 100.0
	}
	return vec, nil
}

func newTestStore(t *testing.T) *store.GraphStore {
	t.Helper()
	config.SetTestDatabaseConfigEnvs(t, dbPort)
	cfg, err := config.Load()
	require.NoError(t, err)

	db, err := sql.Open("postgres", cfg.Database.DSN())
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(), `TRUNCATE relationships, entities, documents;`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := store.New(cfg.Database, 16, fakeEmbedder{dim: 16}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}
