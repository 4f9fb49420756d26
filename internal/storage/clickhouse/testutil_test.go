package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testImage = "clickhouse/clickhouse-server:24.1-alpine"

// setupTestDB starts a disposable ClickHouse, applies the schema and returns
// a connection plus the cleanup to defer. Skipped with -short.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping clickhouse integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImage,
			ExposedPorts: []string{"9000/tcp"},
			Env:          map[string]string{"CLICKHOUSE_DB": "contagion"},
			WaitingFor: wait.ForListeningPort("9000/tcp").
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start clickhouse container")

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "")
	require.NoError(t, err, "container endpoint")

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s/contagion?dial_timeout=30s", endpoint))
	require.NoError(t, err, "connect")

	for _, file := range schemaFiles(t) {
		data, err := os.ReadFile(file)
		require.NoError(t, err, "read %s", file)
		for _, stmt := range splitSchema(string(data)) {
			require.NoError(t, conn.Exec(ctx, stmt), "apply %s", filepath.Base(file))
		}
	}

	return conn, func() {
		conn.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
}

// schemaFiles lists the clickhouse migrations in apply order, read from disk
// since the migrations package imports this one.
func schemaFiles(t *testing.T) []string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found")
		dir = parent
	}

	files, err := filepath.Glob(filepath.Join(dir, "internal", "storage", "migrations", "clickhouse", "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no clickhouse migrations")
	sort.Strings(files)
	return files
}

// splitSchema drops comment lines and splits on semicolons; the schema
// files carry no string literals.
func splitSchema(sql string) []string {
	var b strings.Builder
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}
