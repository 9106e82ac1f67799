// Package backup writes plain-SQL dumps of the repair database.
package backup

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// dumpTables lists every table in foreign-key order so the resulting dump
// restores cleanly with constraints enabled.
var dumpTables = []string{
	"users",
	"clients",
	"appliances",
	"issue_types",
	"tickets",
	"ticket_assignees",
	"status_history",
	"ticket_comments",
	"ticket_parts",
	"deadline_extensions",
	"notifications",
}

// Options controls a dump run.
type Options struct {
	// OutDir is the directory the timestamped dump file is written to.
	OutDir string
	// IncludeSchema prepends the contents of the SQL files in SchemaDir.
	IncludeSchema bool
	// SchemaDir holds the DDL files, normally the migrations directory.
	SchemaDir string
}

// Run dumps every table as INSERT statements into a timestamped .sql file
// under opts.OutDir and returns the path of the written file.
func Run(ctx context.Context, pool *pgxpool.Pool, opts Options, logger *zap.Logger) (string, error) {
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("repair-service-%s.sql", time.Now().UTC().Format("20060102T150405Z"))
	path := filepath.Join(opts.OutDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create dump file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "-- repair-service dump, %s\n", time.Now().UTC().Format(time.RFC3339))

	if opts.IncludeSchema {
		if err := writeSchema(w, opts.SchemaDir); err != nil {
			return "", err
		}
	}

	fmt.Fprintln(w, "BEGIN;")
	for _, table := range dumpTables {
		rowCount, err := dumpTable(ctx, pool, w, table)
		if err != nil {
			return "", fmt.Errorf("dump %s: %w", table, err)
		}
		logger.Info("table dumped", zap.String("table", table), zap.Int("rows", rowCount))
	}
	fmt.Fprintln(w, "COMMIT;")

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("flush dump: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close dump: %w", err)
	}

	logger.Info("backup written", zap.String("path", path))
	return path, nil
}

func writeSchema(w *bufio.Writer, schemaDir string) error {
	entries, err := os.ReadDir(schemaDir)
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(schemaDir, name))
		if err != nil {
			return fmt.Errorf("read schema file %s: %w", name, err)
		}
		fmt.Fprintf(w, "\n-- schema: %s\n", name)
		w.Write(content)
		fmt.Fprintln(w)
	}
	return nil
}

func dumpTable(ctx context.Context, pool *pgxpool.Pool, w *bufio.Writer, table string) (int, error) {
	rows, err := pool.Query(ctx, "SELECT * FROM "+table+" ORDER BY 1")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}
	columnList := strings.Join(columns, ", ")

	count := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return count, err
		}
		literals := make([]string, len(values))
		for i, v := range values {
			literals[i] = sqlLiteral(v)
		}
		fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (%s);\n", table, columnList, strings.Join(literals, ", "))
		count++
	}
	return count, rows.Err()
}

// sqlLiteral renders a scanned value as a SQL literal. Strings are quoted
// with doubled single quotes, times emitted as RFC 3339.
func sqlLiteral(v any) string {
	switch value := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if value {
			return "TRUE"
		}
		return "FALSE"
	case string:
		return quoteString(value)
	case []byte:
		return quoteString(string(value))
	case time.Time:
		return quoteString(value.UTC().Format(time.RFC3339Nano))
	case int64:
		return strconv.FormatInt(value, 10)
	case int32:
		return strconv.FormatInt(int64(value), 10)
	case int16:
		return strconv.FormatInt(int64(value), 10)
	case float64:
		return strconv.FormatFloat(value, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'g', -1, 32)
	default:
		return quoteString(fmt.Sprintf("%v", value))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
