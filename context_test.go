package sniperz

import (
	"context"
	"io"
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestContextReader(t *testing.T) {
	assert := assert_.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	r := NewContextReader(ctx, strings.NewReader("hello world"))

	buf := make([]byte, 5)
	n, err := r.Read(buf)
	assert.NoError(err)
	assert.Equal("hello", string(buf[:n]))

	cancel()
	_, err = r.Read(buf)
	assert.ErrorIs(err, context.Canceled)
}

func TestContextReaderCopyAborts(t *testing.T) {
	assert := assert_.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewContextReader(ctx, strings.NewReader("never read"))
	_, err := io.Copy(io.Discard, r)
	assert.ErrorIs(err, context.Canceled)
}
