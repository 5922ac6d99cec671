package effects

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// HTTPNet performs real HTTP. Listen defaults to net.Listen and exists so
// callers can choose the socket.
type HTTPNet struct {
	Client *http.Client
	Listen func(network, addr string) (net.Listener, error)
}

func (n *HTTPNet) client() *http.Client {
	if n.Client != nil {
		return n.Client
	}
	return http.DefaultClient
}

func (n *HTTPNet) Get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := n.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return string(body), nil
}

// Serve accepts connections one at a time and answers a single request on
// each before accepting the next.
func (n *HTTPNet) Serve(ctx context.Context, port int, handler Handler) error {
	listen := n.Listen
	if listen == nil {
		listen = net.Listen
	}
	ln, err := listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer ln.Close()
	slog.Debug("serving", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		if err := serveConn(ctx, conn, handler); err != nil {
			return err
		}
	}
}

func serveConn(ctx context.Context, conn net.Conn, handler Handler) error {
	defer conn.Close()

	httpReq, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		slog.Debug("dropping malformed request", "error", err)
		return nil
	}
	body, err := io.ReadAll(httpReq.Body)
	if err != nil {
		return nil
	}

	req := Request{
		Method: httpReq.Method,
		Path:   httpReq.URL.Path,
		Query:  httpReq.URL.RawQuery,
		Body:   string(body),
	}
	resp, handlerErr := handler(ctx, req)
	if handlerErr != nil {
		resp = Response{Status: http.StatusInternalServerError, Body: "internal error"}
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	slog.Debug("handled request", "method", req.Method, "path", req.Path, "status", resp.Status)

	out := &http.Response{
		StatusCode:    resp.Status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": {"text/plain; charset=utf-8"}},
		Body:          io.NopCloser(strings.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Close:         true,
	}
	if err := out.Write(conn); err != nil {
		slog.Debug("writing response", "error", err)
	}
	return handlerErr
}

// ReplayNet answers Get from a fixed table and serves a fixed list of
// requests, recording the responses.
type ReplayNet struct {
	Pages     map[string]string
	Requests  []Request
	Responses []Response
}

func (n *ReplayNet) Get(_ context.Context, url string) (string, error) {
	body, ok := n.Pages[url]
	if !ok {
		return "", fmt.Errorf("GET %s: 404 Not Found", url)
	}
	return body, nil
}

func (n *ReplayNet) Serve(ctx context.Context, _ int, handler Handler) error {
	for _, req := range n.Requests {
		resp, err := handler(ctx, req)
		if err != nil {
			return err
		}
		if resp.Status == 0 {
			resp.Status = http.StatusOK
		}
		n.Responses = append(n.Responses, resp)
	}
	return nil
}
