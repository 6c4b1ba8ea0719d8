package notify

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/cheese-solo-chess/internal/msgcat"
	"github.com/park285/cheese-solo-chess/internal/rules"
	"github.com/park285/cheese-solo-chess/internal/session"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestWebhook(t *testing.T, handler fasthttp.RequestHandler) (*Client, func()) {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()

	hc := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	c := NewClient("http://webhook.test/hook", WithHTTPClient(hc), WithTimeout(2*time.Second),
		WithHeaderProvider(func() map[string]string { return map[string]string{"X-Token": "t"} }))
	return c, func() {
		_ = srv.Shutdown()
		_ = ln.Close()
	}
}

func fastBackoff(t *testing.T) {
	t.Helper()
	prev := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = prev })
}

func TestSendPostsJSON(t *testing.T) {
	var got Notice
	var token string
	c, cleanup := newTestWebhook(t, func(ctx *fasthttp.RequestCtx) {
		token = string(ctx.Request.Header.Peek("X-Token"))
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	})
	defer cleanup()

	n := Notice{Event: "game_over", GameID: "g1", Result: "1-0", Moves: []string{"1. e4"}}
	if err := c.Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.GameID != "g1" || got.Result != "1-0" || token != "t" {
		t.Fatalf("unexpected delivery: %+v token=%q", got, token)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	fastBackoff(t)
	var calls int32
	c, cleanup := newTestWebhook(t, func(ctx *fasthttp.RequestCtx) {
		if atomic.AddInt32(&calls, 1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	defer cleanup()

	if err := c.Send(context.Background(), Notice{GameID: "g"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	fastBackoff(t)
	var calls int32
	c, cleanup := newTestWebhook(t, func(ctx *fasthttp.RequestCtx) {
		atomic.AddInt32(&calls, 1)
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		ctx.SetBodyString("nope")
	})
	defer cleanup()

	err := c.Send(context.Background(), Notice{GameID: "g"})
	if err == nil || !strings.Contains(err.Error(), "status=400") {
		t.Fatalf("expected 400 error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("client error retried: %d", calls)
	}
}

func TestSendWithoutURL(t *testing.T) {
	if err := NewClient("").Send(context.Background(), Notice{}); err == nil {
		t.Fatalf("expected error")
	}
}

type captureSender struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *captureSender) Send(_ context.Context, n Notice) error {
	c.mu.Lock()
	c.notices = append(c.notices, n)
	c.mu.Unlock()
	return nil
}

func TestObserverSendsFinishedGames(t *testing.T) {
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	sender := &captureSender{}
	imaged := 0
	var orientation rules.Color
	o := NewObserver(sender, cat, nil, WithImager(func(_ context.Context, _ string, human rules.Color) ([]byte, error) {
		imaged++
		orientation = human
		return []byte("png"), nil
	}))

	base := session.Event{GameID: "g1", Human: rules.Black, Entries: []string{"1. f3", "e5 -"}, Position: "fen"}
	move := base
	move.Kind = session.EventHumanMove
	o.SessionEvent(context.Background(), move)

	over := base
	over.Kind = session.EventGameOver
	over.Outcome = rules.Outcome{Status: rules.StatusCheckmate, Winner: rules.Black, Result: "0-1"}
	o.SessionEvent(context.Background(), over)

	empty := over
	empty.Entries = nil
	o.SessionEvent(context.Background(), empty)

	o.Close()
	o.SessionEvent(context.Background(), over)

	if len(sender.notices) != 1 {
		t.Fatalf("expected one notice, got %+v", sender.notices)
	}
	n := sender.notices[0]
	if n.Text != "Checkmate. black wins (0-1)." || n.ImageBase64 != "cG5n" || imaged != 1 {
		t.Fatalf("unexpected notice: %+v", n)
	}
	if orientation != rules.Black || n.Human != "black" {
		t.Fatalf("image not drawn from the game's human side: %q", orientation)
	}
}
