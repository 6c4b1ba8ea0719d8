package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece outlines on a 45x45 viewBox. %[1]s is the shared style attribute.
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `<circle cx="22.5" cy="14" r="6" %[1]s/>` +
		`<path d="M16 22 L29 22 L32 35 L13 35 Z" %[1]s/>` +
		`<rect x="11" y="35" width="23" height="5" %[1]s/>`,
	nchess.Rook: `<path d="M12 9 L16 9 L16 12 L20 12 L20 9 L25 9 L25 12 L29 12 L29 9 L33 9 L33 16 L30 18 L30 32 L15 32 L15 18 L12 16 Z" %[1]s/>` +
		`<rect x="10" y="33" width="25" height="6" %[1]s/>`,
	nchess.Knight: `<path d="M14 38 L34 38 C34 28 33 16 24 9 L21 6 L19 11 C14 13 10 19 10 23 L14 25 L20 21 C21 27 15 30 14 38 Z" %[1]s/>`,
	nchess.Bishop: `<circle cx="22.5" cy="8" r="3" %[1]s/>` +
		`<path d="M22.5 11 C15 17 15 26 18 30 L27 30 C30 26 30 17 22.5 11 Z" %[1]s/>` +
		`<rect x="12" y="32" width="21" height="6" %[1]s/>`,
	nchess.Queen: `<path d="M9 14 L14 30 L31 30 L36 14 L29 23 L27 10 L22.5 22 L18 10 L16 23 Z" %[1]s/>` +
		`<circle cx="9" cy="12" r="2.5" %[1]s/><circle cx="18" cy="9" r="2.5" %[1]s/>` +
		`<circle cx="27" cy="9" r="2.5" %[1]s/><circle cx="36" cy="12" r="2.5" %[1]s/>` +
		`<rect x="12" y="31" width="21" height="7" %[1]s/>`,
	nchess.King: `<path d="M21 4 L24 4 L24 8 L28 8 L28 11 L24 11 L24 15 L21 15 L21 11 L17 11 L17 8 L21 8 Z" %[1]s/>` +
		`<path d="M11 22 C11 15 34 15 34 22 L30 32 L15 32 Z" %[1]s/>` +
		`<rect x="12" y="33" width="21" height="6" %[1]s/>`,
}

func pieceSVG(piece nchess.Piece) (string, error) {
	shape, ok := pieceShapes[piece.Type()]
	if !ok {
		return "", fmt.Errorf("no shape for piece %v", piece)
	}
	fill, stroke := "#ffffff", "#000000"
	if piece.Color() == nchess.Black {
		fill, stroke = "#000000", "#ffffff"
	}
	style := fmt.Sprintf(`fill="%s" stroke="%s" stroke-width="1.5"`, fill, stroke)
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">`)
	fmt.Fprintf(&b, shape, style)
	b.WriteString(`</svg>`)
	return b.String(), nil
}

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(piece)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
