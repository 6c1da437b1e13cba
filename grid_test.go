package mandel

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"path/filepath"
	"testing"
)

func TestSplitRect(t *testing.T) {
	tests := []struct {
		name         string
		r            image.Rectangle
		tileW, tileH int
		wantCount    int
	}{
		{"exact", image.Rect(0, 0, 128, 64), 64, 64, 2},
		{"ragged", image.Rect(0, 0, 1366, 768), 64, 64, 22 * 12},
		{"offset", image.Rect(10, 10, 20, 15), 3, 2, 4 * 3},
		{"bigger tile", image.Rect(0, 0, 5, 5), 64, 64, 1},
		{"empty", image.Rectangle{}, 8, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiles := SplitRect(tt.r, tt.tileW, tt.tileH)
			if len(tiles) != tt.wantCount {
				t.Fatalf("got %d tiles, want %d", len(tiles), tt.wantCount)
			}
			area := 0
			for i, a := range tiles {
				if !a.In(tt.r) {
					t.Errorf("tile %s outside %s", a, tt.r)
				}
				if a.Dx() > tt.tileW || a.Dy() > tt.tileH {
					t.Errorf("tile %s larger than %dx%d", a, tt.tileW, tt.tileH)
				}
				for _, b := range tiles[i+1:] {
					if a.Overlaps(b) {
						t.Errorf("tiles %s and %s overlap", a, b)
					}
				}
				area += a.Dx() * a.Dy()
			}
			if area != tt.r.Dx()*tt.r.Dy() {
				t.Errorf("tiles cover %d pixels, want %d", area, tt.r.Dx()*tt.r.Dy())
			}
		})
	}
}

func TestSplitRectPanicsOnBadSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for zero tile width")
		}
	}()
	SplitRect(image.Rect(0, 0, 4, 4), 0, 4)
}

func TestRowBands(t *testing.T) {
	cfg := Config{Width: 10, Height: 7, Iterations: 1}
	tests := []struct {
		n, want int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{7, 7},
		{20, 7},
		{0, 1},
	}
	for _, tt := range tests {
		bands := RowBands(cfg, tt.n)
		if len(bands) != tt.want {
			t.Errorf("RowBands(%d) = %d bands, want %d", tt.n, len(bands), tt.want)
		}
		for _, b := range bands {
			if b.Min.X != 0 || b.Max.X != cfg.Width {
				t.Errorf("band %s is not full width", b)
			}
		}
	}
}

func TestGridDraw(t *testing.T) {
	g := NewGrid(4, 3)
	tile := &Tile{
		Rect:  image.Rect(1, 1, 3, 3),
		Cells: []bool{true, false, false, true},
	}
	if err := g.Draw(tile); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	want := []bool{
		false, false, false, false,
		false, true, false, false,
		false, false, true, false,
	}
	for i := range want {
		if g.Cells[i] != want[i] {
			t.Fatalf("cells = %v, want %v", g.Cells, want)
		}
	}
}

func TestGridDrawRejectsBadTiles(t *testing.T) {
	g := NewGrid(4, 3)
	err := g.Draw(&Tile{Rect: image.Rect(3, 0, 5, 1), Cells: make([]bool, 2)})
	if !errors.Is(err, ErrTileOutOfBounds) {
		t.Errorf("out of bounds tile: err = %v", err)
	}
	if err := g.Draw(&Tile{Rect: image.Rect(0, 0, 2, 2), Cells: make([]bool, 3)}); err == nil {
		t.Errorf("short tile: no error")
	}
}

func TestGridGray(t *testing.T) {
	g := NewGrid(3, 2)
	g.Set(0, 1, true)
	g.Set(1, 2, true)

	img := g.Gray()
	if img.Bounds() != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds = %s", img.Bounds())
	}
	for row := range 2 {
		for col := range 3 {
			want := uint8(0)
			if g.At(row, col) {
				want = 255
			}
			if got := img.GrayAt(col, row).Y; got != want {
				t.Errorf("(%d, %d) = %d, want %d", row, col, got, want)
			}
		}
	}
}

func TestWritePNG(t *testing.T) {
	cfg := Config{Width: 4, Height: 4, Iterations: 30}
	g, err := RenderTile(cfg, image.Rect(0, 0, 4, 4))
	if err != nil {
		t.Fatal(err)
	}
	grid := NewGrid(4, 4)
	if err := grid.Draw(g); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := grid.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("decoded %T, want *image.Gray", img)
	}
	for row, want := range reference4x4 {
		for col, w := range want {
			if got := gray.GrayAt(col, row).Y == 255; got != w {
				t.Errorf("(%d, %d) = %v, want %v", row, col, got, w)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "mandelbrot.png")
	if err := WritePNG(path, grid); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	if err := WritePNG(filepath.Join(t.TempDir(), "missing", "x.png"), grid); err == nil {
		t.Error("WritePNG into a missing directory succeeded")
	}
}
