// Package testdb starts an ephemeral Postgres container for database-backed
// tests, using the pgvector/pgvector image so the vector extension and HNSW
// index used by the graph store are exercised for real rather than mocked.
package testdb

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MustStartPostgresContainer starts a pgvector-enabled Postgres container
// and returns a teardown func and the host port it is reachable on. Despite
// the name it returns an error rather than panicking; callers only ever
// invoke it from TestMain, which is the conventional place to fail fast.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, int, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("paperkg"),
		postgres.WithUsername("paperkg"),
		postgres.WithPassword("paperkg"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("testdb: start postgres container: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, 0, fmt.Errorf("testdb: map postgres port: %w", err)
	}

	teardown := func(ctx context.Context, opts ...testcontainers.TerminateOption) error {
		return container.Terminate(ctx, opts...)
	}

	return teardown, mappedPort.Int(), nil
}
