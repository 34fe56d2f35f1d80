package sniperz

import (
	"context"
	"io"
)

// NewContextReader wraps a reader so that each Read checks ctx first, making
// long io.Copy loops abortable mid-stream.
func NewContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &readerContext{ctx: ctx, r: r}
}

type readerContext struct {
	ctx context.Context
	r   io.Reader
}

func (r *readerContext) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
