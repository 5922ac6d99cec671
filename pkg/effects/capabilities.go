package effects

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// ConsoleCap is line-oriented terminal I/O.
type ConsoleCap interface {
	Print(s string) error
	Println(s string) error
	// ReadLine returns the next line without its terminator; ok is false at
	// end of input.
	ReadLine() (line string, ok bool, err error)
}

// FsCap is whole-file access.
type FsCap interface {
	Read(path string) (string, error)
	Write(path, contents string) error
	Exists(path string) bool
}

// Request is what a Net.serve handler receives.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// Response is what a Net.serve handler answers with.
type Response struct {
	Status int
	Body   string
}

// Handler answers one request. A returned error stops the server.
type Handler func(ctx context.Context, req Request) (Response, error)

// NetCap is HTTP access.
type NetCap interface {
	Get(ctx context.Context, url string) (string, error)
	// Serve blocks, handling requests one at a time until the handler fails.
	Serve(ctx context.Context, port int, handler Handler) error
}

// ClockCap reads and waits on time, in milliseconds.
type ClockCap interface {
	Now() int64
	Sleep(ms int64)
	Today() string
}

// RandCap is a source of randomness. Read fills p with random bytes.
type RandCap interface {
	Int(lo, hi int64) int64
	Bool() bool
	Float() float64
	Read(p []byte) (int, error)
}

// EnvCap is the process environment.
type EnvCap interface {
	Get(name string) (string, bool)
	Args() []string
}

// Capabilities holds one slot per built-in effect. A nil slot means the
// effect is unavailable and any use of it fails.
type Capabilities struct {
	Console ConsoleCap
	Fs      FsCap
	Net     NetCap
	Clock   ClockCap
	Rand    RandCap
	Env     EnvCap
}

// Has reports whether the named built-in effect has a capability.
func (c *Capabilities) Has(effect string) bool {
	if c == nil {
		return false
	}
	switch effect {
	case Console:
		return c.Console != nil
	case Fs:
		return c.Fs != nil
	case Net:
		return c.Net != nil
	case Clock:
		return c.Clock != nil
	case Rand:
		return c.Rand != nil
	case Env:
		return c.Env != nil
	}
	return false
}

// Without returns a copy with the named effects removed.
func (c *Capabilities) Without(names ...string) *Capabilities {
	cp := *c
	for _, name := range names {
		switch name {
		case Console:
			cp.Console = nil
		case Fs:
			cp.Fs = nil
		case Net:
			cp.Net = nil
		case Clock:
			cp.Clock = nil
		case Rand:
			cp.Rand = nil
		case Env:
			cp.Env = nil
		default:
			slog.Debug("ignoring unknown effect in deny list", "effect", name)
		}
	}
	return &cp
}

// Available lists the effects that have a capability.
func (c *Capabilities) Available() Set {
	s := Set{}
	for _, name := range Builtins {
		if c.Has(name) {
			s.Add(name)
		}
	}
	return s
}

// UUID draws a version 4 UUID from r, so a seeded generator yields the same
// sequence of identifiers.
func UUID(r RandCap) (string, error) {
	id, err := uuid.NewRandomFromReader(r)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
