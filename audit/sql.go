package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/zeptools/pdf-joiner/db/sqldb"
)

const Table = "merge_audit"

var ddl = map[string]string{
	"pgsql": `CREATE TABLE IF NOT EXISTS merge_audit (
	id BIGSERIAL PRIMARY KEY,
	at TIMESTAMPTZ NOT NULL,
	client_ip VARCHAR(64) NOT NULL,
	template_pages INTEGER NOT NULL,
	inserted TEXT NOT NULL,
	output_pages INTEGER NOT NULL,
	output_bytes BIGINT NOT NULL,
	digest CHAR(64) NOT NULL
)`,
	"mysql": `CREATE TABLE IF NOT EXISTS merge_audit (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	at DATETIME(3) NOT NULL,
	client_ip VARCHAR(64) NOT NULL,
	template_pages INT NOT NULL,
	inserted TEXT NOT NULL,
	output_pages INT NOT NULL,
	output_bytes BIGINT NOT NULL,
	digest CHAR(64) NOT NULL
)`,
}

var columns = []string{"at", "client_ip", "template_pages", "inserted", "output_pages", "output_bytes", "digest"}

// SQLRecorder writes one row per merge into Table
type SQLRecorder struct {
	Client sqldb.Client
}

var (
	_ Recorder = (*SQLRecorder)(nil)
	_ Reader   = (*SQLRecorder)(nil)
)

func (r *SQLRecorder) dbType() string {
	return r.Client.GetConf().Type
}

// EnsureSchema creates Table if missing
func (r *SQLRecorder) EnsureSchema(ctx context.Context) error {
	stmt, ok := ddl[r.dbType()]
	if !ok {
		return fmt.Errorf("audit: no schema for database type %q", r.dbType())
	}
	if _, err := r.Client.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("audit: create %s: %w", Table, err)
	}
	return nil
}

func (r *SQLRecorder) insertStmt() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		Table, strings.Join(columns, ", "), strings.Join(sqldb.Placeholders(r.dbType(), len(columns)), ", "))
}

func (r *SQLRecorder) Record(ctx context.Context, rec Record) error {
	inserted, err := json.Marshal(rec.Inserted)
	if err != nil {
		return fmt.Errorf("audit: encode insertions: %w", err)
	}
	_, err = r.Client.Exec(ctx, r.insertStmt(),
		rec.At.UTC(), rec.ClientIP, rec.TemplatePages, string(inserted), rec.OutputPages, rec.OutputBytes, rec.Digest)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

func (r *SQLRecorder) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	limit := sqldb.Placeholders(r.dbType(), 1)[0]
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id DESC LIMIT %s", strings.Join(columns, ", "), Table, limit)
	rows, err := r.Client.QueryRows(ctx, query, n)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			rec      Record
			inserted string
		)
		if err = rows.Scan(&rec.At, &rec.ClientIP, &rec.TemplatePages, &inserted, &rec.OutputPages, &rec.OutputBytes, &rec.Digest); err != nil {
			return nil, err
		}
		if err = json.Unmarshal([]byte(inserted), &rec.Inserted); err != nil {
			return nil, fmt.Errorf("audit: decode insertions: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes rows recorded before cutoff
func (r *SQLRecorder) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE at < %s", Table, sqldb.Placeholders(r.dbType(), 1)[0])
	res, err := r.Client.Exec(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	return res.RowsAffected()
}
