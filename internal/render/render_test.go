package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-solo-chess/internal/rules"
)

const (
	startFEN     = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	afterE4FEN   = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	testSquarePx = 32
)

func decode(t *testing.T, b []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func TestRenderStartPosition(t *testing.T) {
	r := NewPNGRenderer(testSquarePx)
	b, err := r.RenderFEN(context.Background(), startFEN, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img := decode(t, b)
	want := testSquarePx*8 + testSquarePx
	if img.Bounds().Dx() != want || img.Bounds().Dy() != want {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
}

func TestRenderHighlightsLastMove(t *testing.T) {
	r := NewPNGRenderer(testSquarePx)
	plain, err := r.RenderFEN(context.Background(), afterE4FEN, Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lit, err := r.RenderFEN(context.Background(), afterE4FEN, Options{
		LastMove: &rules.Move{From: "e2", To: "e4", Color: rules.White},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	// top-left corner of the emptied e2 square
	rect := squareRect(mustSquare(t, "e2"), testSquarePx, image.Pt(testSquarePx/2, testSquarePx/2), false)
	p := rect.Min.Add(image.Pt(1, 1))
	if decode(t, plain).At(p.X, p.Y) == decode(t, lit).At(p.X, p.Y) {
		t.Fatalf("e2 not highlighted")
	}
}

func TestRenderFlipsForBlack(t *testing.T) {
	origin := image.Pt(testSquarePx/2, testSquarePx/2)
	a1 := mustSquare(t, "a1")
	if got := squareRect(a1, testSquarePx, origin, false).Min; got != image.Pt(origin.X, origin.Y+7*testSquarePx) {
		t.Fatalf("a1 not bottom-left for white: %v", got)
	}
	if got := squareRect(a1, testSquarePx, origin, true).Min; got != image.Pt(origin.X+7*testSquarePx, origin.Y) {
		t.Fatalf("a1 not top-right for black: %v", got)
	}
	if _, err := NewPNGRenderer(testSquarePx).RenderFEN(context.Background(), startFEN, Options{Orientation: rules.Black}); err != nil {
		t.Fatalf("render flipped: %v", err)
	}
}

func TestRenderErrors(t *testing.T) {
	r := NewPNGRenderer(0)
	if _, err := r.RenderFEN(context.Background(), "not a fen", Options{}); err == nil {
		t.Fatalf("expected fen error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderFEN(ctx, startFEN, Options{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func mustSquare(t *testing.T, s string) nchess.Square {
	t.Helper()
	sq, ok := parseSquare(s)
	if !ok {
		t.Fatalf("bad square %s", s)
	}
	return sq
}
