package effects

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/joho/godotenv"

	"github.com/vito/warden/pkg/ioctx"
)

// Options configures the capabilities handed to a program.
type Options struct {
	// Deny removes effects entirely.
	Deny []string
	// Seed, when set, replaces system randomness with a seeded xorshift64
	// generator.
	Seed *uint64
	// FixedClock, when set, pins the clock at the given Unix milliseconds.
	FixedClock *int64
	// Dotenv files are read into the environment.
	Dotenv []string
	// FsRoot confines filesystem access beneath a directory.
	FsRoot string
	Args   []string
}

// System builds capabilities backed by the host, using the streams found in
// ctx for the console.
func System(ctx context.Context, opts Options) (*Capabilities, error) {
	env, err := NewOSEnv(opts.Args, opts.Dotenv...)
	if err != nil {
		return nil, err
	}
	caps := &Capabilities{
		Console: NewStreamConsole(ioctx.StdinFromContext(ctx), ioctx.StdoutFromContext(ctx)),
		Fs:      NewOSFs(opts.FsRoot),
		Net:     &HTTPNet{},
		Clock:   SystemClock{},
		Rand:    NewSystemRand(),
		Env:     env,
	}
	if opts.Seed != nil {
		caps.Rand = NewXorShift(*opts.Seed)
	}
	if opts.FixedClock != nil {
		caps.Clock = &FixedClock{Millis: *opts.FixedClock}
	}
	caps = caps.Without(opts.Deny...)
	slog.Debug("built capabilities", "available", caps.Available().String(), "fsRoot", opts.FsRoot)
	return caps, nil
}

// StreamConsole reads and writes the given streams.
type StreamConsole struct {
	in  *bufio.Reader
	out io.Writer
}

func NewStreamConsole(in io.Reader, out io.Writer) *StreamConsole {
	return &StreamConsole{in: bufio.NewReader(in), out: out}
}

func (c *StreamConsole) Print(s string) error {
	_, err := io.WriteString(c.out, s)
	return err
}

func (c *StreamConsole) Println(s string) error {
	_, err := io.WriteString(c.out, s+"\n")
	return err
}

func (c *StreamConsole) ReadLine() (string, bool, error) {
	return readLine(c.in)
}

func readLine(r *bufio.Reader) (string, bool, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", false, nil
		}
		err = nil
	}
	if err != nil {
		return "", false, err
	}
	line = trimNewline(line)
	return line, true, nil
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
		if n := len(s); n > 0 && s[n-1] == '\r' {
			s = s[:n-1]
		}
	}
	return s
}

// OSFs is the host filesystem. A non-empty Root confines every path
// beneath it, resolving symlinks as if Root were the filesystem root.
type OSFs struct {
	Root string
}

func NewOSFs(root string) *OSFs {
	return &OSFs{Root: root}
}

func (f *OSFs) resolve(path string) (string, error) {
	if f.Root == "" {
		return path, nil
	}
	return securejoin.SecureJoin(f.Root, path)
}

func (f *OSFs) Read(path string) (string, error) {
	full, err := f.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *OSFs) Write(path, contents string) error {
	full, err := f.resolve(path)
	if err != nil {
		return err
	}
	return os.WriteFile(full, []byte(contents), 0644)
}

func (f *OSFs) Exists(path string) bool {
	full, err := f.resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().UnixMilli() }

func (SystemClock) Sleep(ms int64) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (c SystemClock) Today() string { return formatDay(c.Now()) }

func formatDay(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.DateOnly)
}

// SystemRand draws from an unseeded PCG generator.
type SystemRand struct {
	r *rand.Rand
}

func NewSystemRand() *SystemRand {
	return &SystemRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (s *SystemRand) Int(lo, hi int64) int64 {
	return intInRange(s.r.Uint64, lo, hi)
}

func (s *SystemRand) Bool() bool     { return s.r.Uint64()&1 == 1 }
func (s *SystemRand) Float() float64 { return s.r.Float64() }

func (s *SystemRand) Read(p []byte) (int, error) {
	return fillBytes(s.r.Uint64, p), nil
}

// intInRange maps a 64-bit draw onto [lo, hi], swapping reversed bounds.
func intInRange(next func() uint64, lo, hi int64) int64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	span := uint64(hi-lo) + 1
	if span == 0 {
		return int64(next())
	}
	return lo + int64(next()%span)
}

func fillBytes(next func() uint64, p []byte) int {
	for i := 0; i < len(p); i += 8 {
		v := next()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p)
}

// OSEnv is the process environment, with variables from dotenv files
// filling in names the process does not already define.
type OSEnv struct {
	dotenv map[string]string
	args   []string
}

func NewOSEnv(args []string, dotenvFiles ...string) (*OSEnv, error) {
	env := &OSEnv{dotenv: map[string]string{}, args: args}
	if len(dotenvFiles) > 0 {
		vars, err := godotenv.Read(dotenvFiles...)
		if err != nil {
			return nil, fmt.Errorf("reading dotenv: %w", err)
		}
		env.dotenv = vars
		slog.Debug("loaded dotenv", "files", dotenvFiles, "vars", len(vars))
	}
	return env, nil
}

func (e *OSEnv) Get(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	v, ok := e.dotenv[name]
	return v, ok
}

func (e *OSEnv) Args() []string { return e.args }
