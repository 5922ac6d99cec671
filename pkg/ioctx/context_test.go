package ioctx

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, io.Discard, StdoutFromContext(ctx))
	assert.Equal(t, io.Discard, StderrFromContext(ctx))

	data, err := io.ReadAll(StdinFromContext(ctx))
	assert.NoError(t, err)
	assert.Empty(t, data)
}

func TestWithStreams(t *testing.T) {
	var out, errs bytes.Buffer
	in := strings.NewReader("line\n")
	ctx := WithStreams(context.Background(), Streams{Stdin: in, Stdout: &out})

	assert.Same(t, &out, StdoutFromContext(ctx))
	assert.Equal(t, io.Discard, StderrFromContext(ctx), "unset streams keep their default")
	assert.Same(t, in, StdinFromContext(ctx))

	ctx = StderrToContext(ctx, &errs)
	assert.Same(t, &errs, StderrFromContext(ctx))
}
