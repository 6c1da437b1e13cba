package mandel

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
)

// RenderTile classifies every pixel of tile.
func RenderTile(cfg Config, tile image.Rectangle) (*Tile, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !tile.In(image.Rect(0, 0, cfg.Width, cfg.Height)) {
		return nil, fmt.Errorf("%w: %s not in %dx%d", ErrTileOutOfBounds, tile, cfg.Width, cfg.Height)
	}

	t := &Tile{Rect: tile, Cells: make([]bool, tile.Dx()*tile.Dy())}
	renderInto(cfg, tile, t.Cells, tile.Dx())
	return t, nil
}

// renderInto writes the classification of rect into cells, where cells[0]
// is rect.Min and consecutive rows are stride apart.
func renderInto(cfg Config, rect image.Rectangle, cells []bool, stride int) {
	for row := rect.Min.Y; row < rect.Max.Y; row++ {
		line := cells[(row-rect.Min.Y)*stride:]
		for col := rect.Min.X; col < rect.Max.X; col++ {
			line[col-rect.Min.X] = cfg.Classify(row, col)
		}
	}
}

// Render classifies the whole grid of cfg using workers goroutines.
// workers <= 0 uses one per CPU.
//
// The grid is split into one row band per worker and every band is written
// by exactly one goroutine, so no locking is needed around the cells. The
// result does not depend on the number of workers.
func Render(ctx context.Context, cfg Config, workers int) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g := NewGrid(cfg.Width, cfg.Height)
	work := RowBands(cfg, workers)
	bands := make(chan image.Rectangle)

	var wg sync.WaitGroup
	for range poolSize(len(work), workers) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for band := range bands {
				start := band.Min.Y*g.Width + band.Min.X
				renderInto(cfg, band, g.Cells[start:], g.Width)
			}
		}()
	}

	var err error
feed:
	for _, band := range work {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case bands <- band:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(bands)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return g, nil
}

// poolSize never starts more goroutines than there are bands to render.
func poolSize(bands, workers int) int {
	return max(1, min(bands, workers))
}
