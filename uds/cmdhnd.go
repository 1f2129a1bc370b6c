package uds

import (
	"context"
	"io"
)

type CmdHnd struct {
	Desc  string
	Usage string
	// Fn writes its reply to w. A returned error is reported to the client.
	Fn func(ctx context.Context, args []string, w io.Writer) error
}
