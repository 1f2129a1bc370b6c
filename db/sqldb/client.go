package sqldb

import (
	"context"
)

// Client is the part of a SQL backend the app uses.
// Statements use the placeholder style of the backend, see Placeholders.
type Client interface {
	Init() error
	Close() error
	GetConf() *Conf
	GetDSN() string
	Ping(ctx context.Context) error

	// Exec executes SQL statement like INSERT, UPDATE, DELETE, CREATE.
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	QueryRows(ctx context.Context, query string, args ...any) (Rows, error)
}
