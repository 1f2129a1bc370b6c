package audit

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strconv"

	"github.com/go-json-experiment/json"

	"github.com/zeptools/pdf-joiner/db/kvdb"
)

const (
	recentKey   = "merges:recent"
	countersKey = "merges:count"
	TotalField  = "total"
)

// KVRecorder appends records to a capped list and bumps per doc type counters
type KVRecorder struct {
	Client kvdb.Client
	Prefix string // key prefix, e.g. "bms-pdf-joiner:"
	Keep   int64  // list cap, 0 keeps everything
}

var (
	_ Recorder      = (*KVRecorder)(nil)
	_ Reader        = (*KVRecorder)(nil)
	_ CounterReader = (*KVRecorder)(nil)
)

func (r *KVRecorder) Record(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("audit: encode record: %w", err)
	}
	if err = r.Client.Push(ctx, r.Prefix+recentKey, string(data)); err != nil {
		return fmt.Errorf("audit: push record: %w", err)
	}
	if r.Keep > 0 {
		if err = r.Client.Trim(ctx, r.Prefix+recentKey, -r.Keep, -1); err != nil {
			return fmt.Errorf("audit: trim records: %w", err)
		}
	}
	if _, err = r.Client.IncrField(ctx, r.Prefix+countersKey, TotalField, 1); err != nil {
		return fmt.Errorf("audit: count merge: %w", err)
	}
	for _, ins := range rec.Inserted {
		if _, err = r.Client.IncrField(ctx, r.Prefix+countersKey, ins.DocTypeID, 1); err != nil {
			return fmt.Errorf("audit: count %s: %w", ins.DocTypeID, err)
		}
	}
	return nil
}

func (r *KVRecorder) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := r.Client.Range(ctx, r.Prefix+recentKey, -int64(n), -1)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(items))
	for _, item := range items {
		var rec Record
		if err = json.Unmarshal([]byte(item), &rec); err != nil {
			log.Printf("[WARN][AUDIT] skipping unreadable record: %v", err)
			continue
		}
		records = append(records, rec)
	}
	slices.Reverse(records)
	return records, nil
}

func (r *KVRecorder) Counters(ctx context.Context) (map[string]int64, error) {
	fields, err := r.Client.GetAllFields(ctx, r.Prefix+countersKey)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(fields))
	for k, v := range fields {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("audit: counter %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}
