package ioctx

import (
	"context"
	"io"
	"os"
	"strings"
)

type stdinKey struct{}
type stdoutKey struct{}
type stderrKey struct{}

// Streams bundles the three standard streams of an evaluation.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// OS returns the process streams.
func OS() Streams {
	return Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// WithStreams stores every non-nil stream in ctx.
func WithStreams(ctx context.Context, s Streams) context.Context {
	if s.Stdin != nil {
		ctx = StdinToContext(ctx, s.Stdin)
	}
	if s.Stdout != nil {
		ctx = StdoutToContext(ctx, s.Stdout)
	}
	if s.Stderr != nil {
		ctx = StderrToContext(ctx, s.Stderr)
	}
	return ctx
}

func StdinFromContext(ctx context.Context) io.Reader {
	r, ok := ctx.Value(stdinKey{}).(io.Reader)
	if !ok {
		return strings.NewReader("")
	}
	return r
}

func StdinToContext(ctx context.Context, r io.Reader) context.Context {
	return context.WithValue(ctx, stdinKey{}, r)
}

func StderrFromContext(ctx context.Context) io.Writer {
	w, ok := ctx.Value(stderrKey{}).(io.Writer)
	if !ok {
		return io.Discard
	}
	return w
}

func StderrToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey{}, w)
}

func StdoutFromContext(ctx context.Context) io.Writer {
	w, ok := ctx.Value(stdoutKey{}).(io.Writer)
	if !ok {
		return io.Discard
	}
	return w
}

func StdoutToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey{}, w)
}
