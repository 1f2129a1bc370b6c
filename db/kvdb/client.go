package kvdb

import (
	"context"
	"errors"
	"time"
)

type Client interface {
	Init() error
	Close() error
	GetConf() *Conf

	//---- Key Ops ----

	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) (int64, error)
	// Expire sets/updates expiration for a key
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) // found & updated, err

	//---- List Ops ----

	Push(ctx context.Context, key string, value string) error                         // append to the tail
	Len(ctx context.Context, key string) (int64, error)                               // list length
	Range(ctx context.Context, key string, start int64, stop int64) ([]string, error) // 0-basis, stop inclusive, negative from the tail
	Trim(ctx context.Context, key string, start int64, stop int64) error              // 0-basis, stop inclusive, negative from the tail

	//---- Hash Ops ----

	// IncrField adds incr to an integer hash field, creating it at 0. Returns the new value
	IncrField(ctx context.Context, key string, field string, incr int64) (int64, error)
	GetAllFields(ctx context.Context, key string) (map[string]string, error)
}

var ErrNotSupported = errors.New("kvdb: operation not supported")
