package effects

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Deterministic builds capabilities whose observable behavior depends only
// on seed and clock: an in-memory console with no input, an empty
// in-memory filesystem, a replay network, a fixed clock, xorshift64
// randomness and an empty environment.
func Deterministic(seed uint64, clockMillis int64) *Capabilities {
	return &Capabilities{
		Console: NewMemoryConsole(""),
		Fs:      NewMemFs(nil),
		Net:     &ReplayNet{},
		Clock:   &FixedClock{Millis: clockMillis},
		Rand:    NewXorShift(seed),
		Env:     &MapEnv{},
	}
}

// MemoryConsole records output and reads from a fixed input.
type MemoryConsole struct {
	Output strings.Builder
	in     *bufio.Reader
}

func NewMemoryConsole(input string) *MemoryConsole {
	return &MemoryConsole{in: bufio.NewReader(strings.NewReader(input))}
}

func (c *MemoryConsole) Print(s string) error {
	c.Output.WriteString(s)
	return nil
}

func (c *MemoryConsole) Println(s string) error {
	c.Output.WriteString(s + "\n")
	return nil
}

func (c *MemoryConsole) ReadLine() (string, bool, error) {
	return readLine(c.in)
}

// MemFs is a flat in-memory filesystem keyed by path.
type MemFs struct {
	Files map[string]string
}

func NewMemFs(files map[string]string) *MemFs {
	if files == nil {
		files = map[string]string{}
	}
	return &MemFs{Files: files}
}

func (f *MemFs) Read(path string) (string, error) {
	data, ok := f.Files[path]
	if !ok {
		return "", &fs.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return data, nil
}

func (f *MemFs) Write(path, contents string) error {
	f.Files[path] = contents
	return nil
}

func (f *MemFs) Exists(path string) bool {
	_, ok := f.Files[path]
	return ok
}

// FixedClock never moves on its own; Sleep advances it.
type FixedClock struct {
	Millis int64
}

func (c *FixedClock) Now() int64     { return c.Millis }
func (c *FixedClock) Sleep(ms int64) { c.Millis += ms }
func (c *FixedClock) Today() string  { return formatDay(c.Millis) }
func (c *FixedClock) String() string { return fmt.Sprintf("fixed clock at %d", c.Millis) }

// xorshiftZeroSeed replaces a zero seed, which would otherwise produce
// zeros forever.
const xorshiftZeroSeed = 0x9E3779B97F4A7C15

// XorShift is Marsaglia's xorshift64 generator (shifts 13, 7, 17).
type XorShift struct {
	state uint64
}

func NewXorShift(seed uint64) *XorShift {
	if seed == 0 {
		seed = xorshiftZeroSeed
	}
	return &XorShift{state: seed}
}

// Next advances the generator and returns the new state.
func (x *XorShift) Next() uint64 {
	s := x.state
	s ^= s << 13
	s ^= s >> 7
	s ^= s << 17
	x.state = s
	return s
}

func (x *XorShift) Int(lo, hi int64) int64 {
	return intInRange(x.Next, lo, hi)
}

func (x *XorShift) Bool() bool { return x.Next()&1 == 1 }

// Float uses the top 53 bits for a uniform value in [0, 1).
func (x *XorShift) Float() float64 {
	return float64(x.Next()>>11) / (1 << 53)
}

func (x *XorShift) Read(p []byte) (int, error) {
	return fillBytes(x.Next, p), nil
}

// MapEnv is an environment backed by a map.
type MapEnv struct {
	Vars map[string]string
	Argv []string
}

func (e *MapEnv) Get(name string) (string, bool) {
	v, ok := e.Vars[name]
	return v, ok
}

func (e *MapEnv) Args() []string { return e.Argv }
