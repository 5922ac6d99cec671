package effects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/warden/pkg/ioctx"
)

func TestSet(t *testing.T) {
	declared := NewSet(Console, Fs)
	used := NewSet(Console, Net, "Logger")

	assert.True(t, NewSet(Console).IsSubsetOf(declared))
	assert.False(t, used.IsSubsetOf(declared))
	assert.Equal(t, []string{"Logger", Net}, used.Difference(declared).Slice())
	assert.Equal(t, []string{Console, Fs, "Logger", Net}, used.Union(declared).Slice())
	assert.Equal(t, "{Console, Fs}", declared.String())
	assert.True(t, NewSet().IsSubsetOf(declared))
}

func TestIsBuiltin(t *testing.T) {
	for _, name := range []string{Console, Fs, Net, Clock, Rand, Env} {
		assert.True(t, IsBuiltin(name), name)
	}
	assert.False(t, IsBuiltin("Logger"))
	assert.False(t, IsBuiltin("console"))
}

func TestCatalog(t *testing.T) {
	op, ok := Lookup(Console, "read_line")
	require.True(t, ok)
	assert.Empty(t, op.Params)
	assert.Equal(t, "Option[Text]", op.Return.String())

	op, ok = Lookup(Fs, "write")
	require.True(t, ok)
	require.Len(t, op.Params, 2)
	assert.Equal(t, "Result[Unit, Text]", op.Return.String())

	op, ok = Lookup(Console, "println")
	require.True(t, ok)
	assert.Equal(t, "Unit", op.Return.String())

	_, ok = Lookup(Console, "shout")
	assert.False(t, ok)

	for _, effect := range Builtins {
		assert.NotEmpty(t, Ops(effect), effect)
	}
}

func TestXorShift(t *testing.T) {
	x := NewXorShift(1)
	assert.Equal(t, uint64(1082269761), x.Next())
	assert.Equal(t, uint64(1152992998833853505), x.Next())
	assert.Equal(t, uint64(11177516664432764457), x.Next())

	zero := NewXorShift(0)
	assert.NotZero(t, zero.Next(), "a zero seed must not get stuck")

	a, b := NewXorShift(42), NewXorShift(42)
	for i := 0; i < 100; i++ {
		n := a.Int(-3, 3)
		require.Equal(t, n, b.Int(-3, 3))
		require.GreaterOrEqual(t, n, int64(-3))
		require.LessOrEqual(t, n, int64(3))

		f := a.Float()
		require.Equal(t, f, b.Float())
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}

	swapped := NewXorShift(7).Int(10, 5)
	assert.GreaterOrEqual(t, swapped, int64(5))
	assert.LessOrEqual(t, swapped, int64(10))
}

func TestUUIDDeterministic(t *testing.T) {
	first, err := UUID(NewXorShift(99))
	require.NoError(t, err)
	second, err := UUID(NewXorShift(99))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 36)
	assert.Equal(t, byte('4'), first[14])

	other, err := UUID(NewXorShift(100))
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestMemoryConsole(t *testing.T) {
	c := NewMemoryConsole("first\r\nsecond")
	require.NoError(t, c.Print("a"))
	require.NoError(t, c.Println("b"))
	assert.Equal(t, "ab\n", c.Output.String())

	for _, expected := range []string{"first", "second"} {
		line, ok, err := c.ReadLine()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, expected, line)
	}
	_, ok, err := c.ReadLine()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemFs(t *testing.T) {
	f := NewMemFs(map[string]string{"a.txt": "hello"})
	data, err := f.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", data)

	_, err = f.Read("missing.txt")
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, f.Write("b.txt", "bye"))
	assert.True(t, f.Exists("b.txt"))
}

func TestOSFsSandbox(t *testing.T) {
	root := t.TempDir()
	f := &OSFs{Root: root}

	require.NoError(t, f.Write("../../escape.txt", "contained"))
	assert.FileExists(t, filepath.Join(root, "escape.txt"))
	assert.True(t, f.Exists("/escape.txt"))

	data, err := f.Read("escape.txt")
	require.NoError(t, err)
	assert.Equal(t, "contained", data)
	assert.False(t, f.Exists("nope.txt"))
}

func TestFixedClock(t *testing.T) {
	c := &FixedClock{Millis: 86_400_000}
	assert.Equal(t, int64(86_400_000), c.Now())
	assert.Equal(t, "1970-01-02", c.Today())
	c.Sleep(500)
	assert.Equal(t, int64(86_400_500), c.Now())
}

func TestOSEnvDotenv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("WARDEN_DOTENV_ONLY=from-file\nWARDEN_DOTENV_SHADOWED=from-file\n"), 0644))
	t.Setenv("WARDEN_DOTENV_SHADOWED", "from-process")

	env, err := NewOSEnv([]string{"one", "two"}, dotenv)
	require.NoError(t, err)

	v, ok := env.Get("WARDEN_DOTENV_ONLY")
	require.True(t, ok)
	assert.Equal(t, "from-file", v)

	v, ok = env.Get("WARDEN_DOTENV_SHADOWED")
	require.True(t, ok)
	assert.Equal(t, "from-process", v)

	_, ok = env.Get("WARDEN_DEFINITELY_UNSET_VARIABLE")
	assert.False(t, ok)
	assert.Equal(t, []string{"one", "two"}, env.Args())

	_, err = NewOSEnv(nil, filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestHTTPNetGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "pong")
	}))
	defer srv.Close()

	n := &HTTPNet{Client: srv.Client()}
	body, err := n.Get(context.Background(), srv.URL+"/ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", body)

	_, err = n.Get(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestHTTPNetServe(t *testing.T) {
	addrs := make(chan string, 1)
	n := &HTTPNet{Listen: func(network, _ string) (net.Listener, error) {
		ln, err := net.Listen(network, "127.0.0.1:0")
		if err == nil {
			addrs <- ln.Addr().String()
		}
		return ln, err
	}}

	stop := errors.New("stop")
	var seen []Request
	done := make(chan error, 1)
	go func() {
		done <- n.Serve(context.Background(), 0, func(_ context.Context, req Request) (Response, error) {
			seen = append(seen, req)
			if req.Path == "/stop" {
				return Response{}, stop
			}
			return Response{Status: 201, Body: "hello " + req.Query}, nil
		})
	}()
	addr := <-addrs

	resp, err := http.Post("http://"+addr+"/greet?name=bob", "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "hello name=bob", string(body))

	resp, err = http.Get("http://" + addr + "/stop")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 500, resp.StatusCode)

	require.ErrorIs(t, <-done, stop)
	require.Len(t, seen, 2)
	assert.Equal(t, Request{Method: "POST", Path: "/greet", Query: "name=bob", Body: "payload"}, seen[0])
}

func TestReplayNet(t *testing.T) {
	n := &ReplayNet{
		Pages:    map[string]string{"https://example.com": "<html>"},
		Requests: []Request{{Method: "GET", Path: "/"}, {Method: "GET", Path: "/about"}},
	}
	body, err := n.Get(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "<html>", body)

	err = n.Serve(context.Background(), 8080, func(_ context.Context, req Request) (Response, error) {
		return Response{Body: req.Path}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []Response{{Status: 200, Body: "/"}, {Status: 200, Body: "/about"}}, n.Responses)
}

func TestCapabilitiesWithout(t *testing.T) {
	caps := Deterministic(1, 0)
	assert.Equal(t, []string{Clock, Console, Env, Fs, Net, Rand}, caps.Available().Slice())

	limited := caps.Without(Net, Fs, "Bogus")
	assert.False(t, limited.Has(Net))
	assert.False(t, limited.Has(Fs))
	assert.True(t, limited.Has(Console))
	assert.True(t, caps.Has(Net), "the original is untouched")

	var none *Capabilities
	assert.False(t, none.Has(Console))
}

func TestSystem(t *testing.T) {
	var out strings.Builder
	ctx := ioctx.WithStreams(context.Background(), ioctx.Streams{Stdin: strings.NewReader("typed\n"), Stdout: &out})

	seed := uint64(5)
	clock := int64(1_000)
	caps, err := System(ctx, Options{Seed: &seed, FixedClock: &clock, Deny: []string{Net}, Args: []string{"x"}})
	require.NoError(t, err)

	assert.False(t, caps.Has(Net))
	assert.Equal(t, int64(1_000), caps.Clock.Now())
	assert.Equal(t, NewXorShift(5).Int(0, 100), caps.Rand.Int(0, 100))
	assert.Equal(t, []string{"x"}, caps.Env.Args())

	require.NoError(t, caps.Console.Println("shown"))
	assert.Equal(t, "shown\n", out.String())
	line, ok, err := caps.Console.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "typed", line)
}
