package migrations

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	chstore "contagion-lab/internal/storage/clickhouse"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunClickhouseMigrations creates the DSN's database if missing, applies the
// embedded schema and returns a connection to that database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	db, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := createDatabase(ctx, dsn, db); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, db)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", db, err)
	}
	if err := applyClickhouse(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, db string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS `"+db+"`"); err != nil {
		return fmt.Errorf("create database %s: %w", db, err)
	}
	return nil
}

func applyClickhouse(ctx context.Context, conn *chstore.Conn) error {
	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return err
	}
	for _, m := range files {
		stmts, err := statements(m.SQL)
		if err != nil {
			return fmt.Errorf("parse migration %s: %w", m.Name, err)
		}
		// one statement per Exec on the native protocol
		for i, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s statement %d: %w", m.Name, i+1, err)
			}
		}
	}
	return nil
}

// statements splits a script on top-level semicolons. Line comments are
// dropped; quoted strings ('' escapes included) are kept intact.
func statements(script string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		comment bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case comment:
			if c == '\n' {
				comment = false
				cur.WriteByte(c)
			}
		case quoted:
			cur.WriteByte(c)
			if c == '\'' {
				if i+1 < len(script) && script[i+1] == '\'' {
					cur.WriteByte('\'')
					i++
					continue
				}
				quoted = false
			}
		case c == '\'':
			quoted = true
			cur.WriteByte(c)
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			comment = true
			i++
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	if quoted {
		return nil, fmt.Errorf("unterminated string literal")
	}
	flush()
	return out, nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.Trim(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	if !identifier.MatchString(db) {
		return "", fmt.Errorf("invalid clickhouse database name %q", db)
	}
	return db, nil
}
