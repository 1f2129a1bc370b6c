package audit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/zeptools/pdf-joiner/db/kvdb"
	"github.com/zeptools/pdf-joiner/db/sqldb"
)

// memKV is a list and hash store with redis index semantics
type memKV struct {
	lists  map[string][]string
	hashes map[string]map[string]string
	fail   error
}

func newMemKV() *memKV {
	return &memKV{lists: map[string][]string{}, hashes: map[string]map[string]string{}}
}

var _ kvdb.Client = (*memKV)(nil)

func (m *memKV) Init() error         { return nil }
func (m *memKV) Close() error        { return nil }
func (m *memKV) GetConf() *kvdb.Conf { return &kvdb.Conf{Type: "mem"} }
func (m *memKV) Exists(_ context.Context, key string) (bool, error) {
	_, l := m.lists[key]
	_, h := m.hashes[key]
	return l || h, nil
}
func (m *memKV) Delete(_ context.Context, keys ...string) (int64, error) {
	var n int64
	for _, k := range keys {
		if _, ok := m.lists[k]; ok {
			delete(m.lists, k)
			n++
		}
	}
	return n, nil
}
func (m *memKV) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, kvdb.ErrNotSupported
}
func (m *memKV) Push(_ context.Context, key, value string) error {
	if m.fail != nil {
		return m.fail
	}
	m.lists[key] = append(m.lists[key], value)
	return nil
}
func (m *memKV) Len(_ context.Context, key string) (int64, error) {
	return int64(len(m.lists[key])), nil
}

func (m *memKV) bounds(key string, start, stop int64) (int64, int64) {
	n := int64(len(m.lists[key]))
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	return start, stop
}

func (m *memKV) Range(_ context.Context, key string, start, stop int64) ([]string, error) {
	start, stop = m.bounds(key, start, stop)
	if start > stop {
		return []string{}, nil
	}
	return append([]string(nil), m.lists[key][start:stop+1]...), nil
}
func (m *memKV) Trim(_ context.Context, key string, start, stop int64) error {
	start, stop = m.bounds(key, start, stop)
	if start > stop {
		delete(m.lists, key)
		return nil
	}
	m.lists[key] = m.lists[key][start : stop+1]
	return nil
}
func (m *memKV) IncrField(_ context.Context, key, field string, incr int64) (int64, error) {
	h, ok := m.hashes[key]
	if !ok {
		h = map[string]string{}
		m.hashes[key] = h
	}
	cur, _ := strconv.ParseInt(h[field], 10, 64)
	cur += incr
	h[field] = strconv.FormatInt(cur, 10)
	return cur, nil
}
func (m *memKV) GetAllFields(_ context.Context, key string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// stubSQL records statements and serves canned rows
type stubSQL struct {
	dbType string
	execs  []stmt
	rows   *stubRows
	fail   error
}

type stmt struct {
	query string
	args  []any
}

var _ sqldb.Client = (*stubSQL)(nil)

func (s *stubSQL) Init() error                { return nil }
func (s *stubSQL) Close() error               { return nil }
func (s *stubSQL) GetConf() *sqldb.Conf       { return &sqldb.Conf{Type: s.dbType} }
func (s *stubSQL) GetDSN() string             { return "" }
func (s *stubSQL) Ping(context.Context) error { return nil }
func (s *stubSQL) Exec(_ context.Context, query string, args ...any) (sqldb.Result, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	s.execs = append(s.execs, stmt{query, args})
	return stubResult(1), nil
}
func (s *stubSQL) QueryRows(_ context.Context, query string, args ...any) (sqldb.Rows, error) {
	s.execs = append(s.execs, stmt{query, args})
	if s.rows == nil {
		return nil, errors.New("no rows prepared")
	}
	return s.rows, nil
}

type stubResult int64

func (r stubResult) RowsAffected() (int64, error) { return int64(r), nil }

type stubRows struct {
	data   [][]any
	i      int
	closed bool
}

func (r *stubRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.data[r.i-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *time.Time:
			*p = row[i].(time.Time)
		case *string:
			*p = row[i].(string)
		case *int:
			*p = row[i].(int)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

func (r *stubRows) Close() error { r.closed = true; return nil }
func (r *stubRows) Err() error   { return nil }
