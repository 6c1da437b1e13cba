package mandel

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
)

// ErrTileOutOfBounds is returned for a tile that does not lie inside the grid.
var ErrTileOutOfBounds = errors.New("tile out of bounds")

// Grid holds one classification per pixel, row-major.
// true means the pixel stayed bounded.
type Grid struct {
	Width, Height int
	Cells         []bool
}

func NewGrid(w, h int) *Grid {
	return &Grid{Width: w, Height: h, Cells: make([]bool, w*h)}
}

func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

func (g *Grid) At(row, col int) bool {
	return g.Cells[row*g.Width+col]
}

func (g *Grid) Set(row, col int, v bool) {
	g.Cells[row*g.Width+col] = v
}

// Row returns the cells of one row. The slice aliases the grid.
func (g *Grid) Row(row int) []bool {
	return g.Cells[row*g.Width : (row+1)*g.Width]
}

// Equal reports whether both grids have the same shape and cells.
func (g *Grid) Equal(o *Grid) bool {
	if g.Width != o.Width || g.Height != o.Height || len(g.Cells) != len(o.Cells) {
		return false
	}
	for i := range g.Cells {
		if g.Cells[i] != o.Cells[i] {
			return false
		}
	}
	return true
}

// Draw copies tile t into its region of the grid.
// Callers drawing from several goroutines must use disjoint tiles.
func (g *Grid) Draw(t *Tile) error {
	if !t.Rect.In(g.Bounds()) {
		return fmt.Errorf("%w: %s not in %s", ErrTileOutOfBounds, t.Rect, g.Bounds())
	}
	w := t.Rect.Dx()
	if len(t.Cells) != w*t.Rect.Dy() {
		return fmt.Errorf("tile %s has %d cells, want %d", t.Rect, len(t.Cells), w*t.Rect.Dy())
	}
	for ty := range t.Rect.Dy() {
		row := t.Rect.Min.Y + ty
		start := row*g.Width + t.Rect.Min.X
		copy(g.Cells[start:start+w], t.Cells[ty*w:(ty+1)*w])
	}
	return nil
}

// Gray converts the grid to an 8-bit single channel image, bounded pixels white.
func (g *Grid) Gray() *image.Gray {
	img := image.NewGray(g.Bounds())
	for row := range g.Height {
		line := img.Pix[row*img.Stride : row*img.Stride+g.Width]
		for col, v := range g.Row(row) {
			if v {
				line[col] = 255
			}
		}
	}
	return img
}

// EncodePNG writes the grid as a grayscale png.
func (g *Grid) EncodePNG(w io.Writer) error {
	return png.Encode(w, g.Gray())
}

// WritePNG saves the grid to filename as a grayscale png.
func WritePNG(filename string, g *Grid) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create %q: %w", filename, err)
	}

	if err := g.EncodePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}

// Tile is the classification of a rectangular block of the grid.
// Rect uses global pixel coordinates, X is the column and Y the row.
type Tile struct {
	Rect  image.Rectangle
	Cells []bool
}

func (t *Tile) At(row, col int) bool {
	return t.Cells[(row-t.Rect.Min.Y)*t.Rect.Dx()+(col-t.Rect.Min.X)]
}

// SplitRect splits r into tiles of size tileW × tileH.
// Tiles at the right and bottom edges are smaller if r is not divisible.
func SplitRect(r image.Rectangle, tileW, tileH int) []image.Rectangle {
	if tileW <= 0 || tileH <= 0 {
		panic("tile dimensions must be positive")
	}

	w := r.Dx()
	h := r.Dy()

	var tiles []image.Rectangle

	for oy := 0; oy < h; oy += tileH {
		th := min(tileH, h-oy)

		for ox := 0; ox < w; ox += tileW {
			tw := min(tileW, w-ox)

			tiles = append(tiles, image.Rect(
				r.Min.X+ox,
				r.Min.Y+oy,
				r.Min.X+ox+tw,
				r.Min.Y+oy+th,
			))
		}
	}

	return tiles
}

// RowBands splits the grid of cfg into at most n full-width bands of
// (nearly) equal height.
func RowBands(cfg Config, n int) []image.Rectangle {
	n = max(1, min(n, cfg.Height))
	bandH := (cfg.Height + n - 1) / n
	return SplitRect(image.Rect(0, 0, cfg.Width, cfg.Height), cfg.Width, bandH)
}
