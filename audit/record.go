// Package audit keeps a trail of completed merges. Only page counts, doc
// types and a digest of the output are kept, never document content.
package audit

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"
)

type Inserted struct {
	DocTypeID string `json:"doc_type"`
	Requested int    `json:"requested"` // index as entered
	Pages     int    `json:"pages"`
}

type Record struct {
	At            time.Time  `json:"at"`
	ClientIP      string     `json:"client_ip"`
	TemplatePages int        `json:"template_pages"`
	Inserted      []Inserted `json:"inserted"` // in splice order
	OutputPages   int        `json:"output_pages"`
	OutputBytes   int        `json:"output_bytes"`
	Digest        string     `json:"digest"` // BLAKE2b-256 of the output, hex
}

// Fingerprint returns the hex BLAKE2b-256 digest of data
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Reader lists the latest records, newest first
type Reader interface {
	Recent(ctx context.Context, n int) ([]Record, error)
}

// Multi records to every Recorder and joins their errors
type Multi []Recorder

func (m Multi) Record(ctx context.Context, rec Record) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }

// CounterReader reports merges per doc type plus TotalField
type CounterReader interface {
	Counters(ctx context.Context) (map[string]int64, error)
}
