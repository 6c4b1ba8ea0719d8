package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-solo-chess/internal/rules"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const DefaultSquarePx = 64

// Options control a single render.
type Options struct {
	// LastMove is highlighted: the squares for a white move, an arrow for a
	// black one.
	LastMove *rules.Move
	// Orientation is the side drawn at the bottom.
	Orientation rules.Color
}

// PNGRenderer draws FEN positions as PNG images.
type PNGRenderer struct {
	squarePx int
}

func NewPNGRenderer(squarePx int) *PNGRenderer {
	if squarePx <= 0 {
		squarePx = DefaultSquarePx
	}
	return &PNGRenderer{squarePx: squarePx}
}

func (r *PNGRenderer) RenderFEN(ctx context.Context, fen string, opts Options) ([]byte, error) {
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	board := nchess.NewGame(option).Position().Board()

	squareSize := r.squarePx
	margin := squareSize / 2
	boardSize := squareSize * 8
	origin := image.Point{X: margin, Y: margin}
	flip := opts.Orientation == rules.Black

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+margin*2, boardSize+margin*2))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawSquares(img, squareSize, origin, flip)
	if err := drawPieces(img, board, squareSize, origin, flip); err != nil {
		return nil, err
	}
	drawHighlight(img, opts.LastMove, squareSize, origin, flip)
	drawCoordinates(img, squareSize, origin, margin, flip)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	backgroundColor         = color.RGBA{28, 31, 46, 255}
	lightSquare             = color.RGBA{233, 207, 163, 255}
	darkSquare              = color.RGBA{187, 136, 96, 255}
	whiteMoveHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	coordinateTextColor     = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
)

var (
	ranks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point, flip bool) {
	for _, rank := range ranks {
		for _, file := range files {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, squareRect(sq, squareSize, origin, flip), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, squareSize int, origin image.Point, flip bool) error {
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		img, err := renderPieceImage(piece, squareSize)
		if err != nil {
			return err
		}
		imagedraw.Draw(dst, squareRect(sq, squareSize, origin, flip), img, image.Point{}, imagedraw.Over)
	}
	return nil
}

func drawHighlight(img *image.RGBA, mv *rules.Move, squareSize int, origin image.Point, flip bool) {
	if mv == nil {
		return
	}
	from, ok1 := parseSquare(mv.From)
	to, ok2 := parseSquare(mv.To)
	if !ok1 || !ok2 {
		return
	}
	if mv.Color == rules.Black {
		drawArrow(img, squareRect(from, squareSize, origin, flip), squareRect(to, squareSize, origin, flip), squareSize, blackMoveHighlightArrow)
		return
	}
	drawOverlay(img, squareRect(from, squareSize, origin, flip), whiteMoveHighlightFill)
	drawOverlay(img, squareRect(to, squareSize, origin, flip), whiteMoveHighlightFill)
}

func drawOverlay(img *image.RGBA, rect image.Rectangle, clr color.Color) {
	imagedraw.Draw(img, rect, image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, fromRect, toRect image.Rectangle, squareSize int, clr color.Color) {
	start := pointF{X: float64(fromRect.Min.X + squareSize/2), Y: float64(fromRect.Min.Y + squareSize/2)}
	end := pointF{X: float64(toRect.Min.X + squareSize/2), Y: float64(toRect.Min.Y + squareSize/2)}

	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.18
	headWidth := float64(squareSize) * 0.32

	base := pointF{X: start.X + dirX*baseLength, Y: start.Y + dirY*baseLength}
	fillQuad(img,
		pointF{X: start.X - perpX*halfWidth, Y: start.Y - perpY*halfWidth},
		pointF{X: start.X + perpX*halfWidth, Y: start.Y + perpY*halfWidth},
		pointF{X: base.X + perpX*halfWidth, Y: base.Y + perpY*halfWidth},
		pointF{X: base.X - perpX*halfWidth, Y: base.Y - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		end,
		pointF{X: base.X - perpX*headWidth/2, Y: base.Y - perpY*headWidth/2},
		pointF{X: base.X + perpX*headWidth/2, Y: base.Y + perpY*headWidth/2},
		clr,
	)
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point, margin int, flip bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()

	for _, rank := range ranks {
		rect := squareRect(nchess.NewSquare(nchess.FileA, rank), squareSize, origin, flip)
		drawCenteredText(drawer, rank.String(), origin.X-margin/2, rect.Min.Y+squareSize/2+ascent/2)
	}
	for _, file := range files {
		rect := squareRect(nchess.NewSquare(file, nchess.Rank1), squareSize, origin, flip)
		drawCenteredText(drawer, file.String(), rect.Min.X+squareSize/2, origin.Y+squareSize*8+margin/2+ascent/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareRect(sq nchess.Square, squareSize int, origin image.Point, flip bool) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	if flip {
		col, row = 7-col, 7-row
	}
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func parseSquare(s string) (nchess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.A1, false
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), true
}

type pointF struct {
	X float64
	Y float64
}

func fillQuad(img *image.RGBA, p0, p1, p2, p3 pointF, clr color.Color) {
	fillTriangleF(img, p0, p1, p2, clr)
	fillTriangleF(img, p0, p2, p3, clr)
}

func fillTriangleF(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	src := image.NewUniform(clr)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if pointInTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				imagedraw.Draw(img, image.Rect(x, y, x+1, y+1), src, image.Point{}, imagedraw.Over)
			}
		}
	}
}

func pointInTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	gamma := 1 - alpha - beta
	return alpha >= 0 && beta >= 0 && gamma >= 0
}
