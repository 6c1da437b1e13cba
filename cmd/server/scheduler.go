package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	mandel "github.com/marben/mandelgray"
)

// tileScheduler hands out tiles of one grid to any number of renderers and
// assembles their results.
type tileScheduler struct {
	workers int
	cfg     mandel.Config
	grid    *mandel.Grid

	ctx       context.Context
	ctxCancel context.CancelFunc

	totalPixels    int
	finishedPixels int
	totalTiles     int

	unstarted map[image.Rectangle]struct{}
	inProcess map[image.Rectangle]struct{}
	m         sync.Mutex
}

func newTileScheduler(cfg mandel.Config, tileSize int) *tileScheduler {
	grid := mandel.NewGrid(cfg.Width, cfg.Height)
	allTilesSlice := mandel.SplitRect(grid.Bounds(), tileSize, tileSize)
	allTiles := make(map[image.Rectangle]struct{}, len(allTilesSlice))
	for _, t := range allTilesSlice {
		allTiles[t] = struct{}{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &tileScheduler{
		cfg:         cfg,
		grid:        grid,
		unstarted:   allTiles,
		inProcess:   make(map[image.Rectangle]struct{}),
		totalPixels: cfg.Width * cfg.Height,
		totalTiles:  len(allTiles),
		ctx:         ctx,
		ctxCancel:   cancel,
	}
}

func (ts *tileScheduler) popTile() (tile image.Rectangle, found bool) {
	ts.m.Lock()
	defer ts.m.Unlock()

	// Get unstarted tile
	if len(ts.unstarted) > 0 {
		for tile = range ts.unstarted {
			break
		}
		delete(ts.unstarted, tile)

		ts.inProcess[tile] = struct{}{}
		return tile, true
	}

	// Nothing unstarted, so race a slower renderer on a tile it already has.
	// Both produce the same cells and only the first result is kept.
	if len(ts.inProcess) > 0 {
		for tile = range ts.inProcess {
			break
		}
		return tile, true
	}

	return image.Rectangle{}, false
}

// Wait blocks until every tile is rendered and returns the grid.
func (ts *tileScheduler) Wait(ctx context.Context) (*mandel.Grid, error) {
	select {
	case <-ts.ctx.Done():
		return ts.grid, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetImage implements mandel.ImgProvider for renderers that want a copy of
// the finished grid.
func (ts *tileScheduler) GetImage(ctx context.Context) (mandel.PackedGrid, error) {
	grid, err := ts.Wait(ctx)
	if err != nil {
		return mandel.PackedGrid{}, err
	}
	return mandel.PackGrid(grid)
}

// Done is closed once the grid is complete.
func (ts *tileScheduler) Done() <-chan struct{} {
	return ts.ctx.Done()
}

type status struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Iterations    int     `json:"iterations"`
	TotalTiles    int     `json:"totalTiles"`
	FinishedTiles int     `json:"finishedTiles"`
	Workers       int     `json:"workers"`
	Progress      float32 `json:"progress"`
}

func (ts *tileScheduler) status() status {
	ts.m.Lock()
	defer ts.m.Unlock()
	return status{
		Width:         ts.cfg.Width,
		Height:        ts.cfg.Height,
		Iterations:    ts.cfg.Iterations,
		TotalTiles:    ts.totalTiles,
		FinishedTiles: ts.totalTiles - len(ts.unstarted) - len(ts.inProcess),
		Workers:       ts.workers,
		Progress:      float32(ts.finishedPixels) / float32(ts.totalPixels),
	}
}

func (ts *tileScheduler) tileFinished(tile *mandel.Tile) error {
	ts.m.Lock()
	defer ts.m.Unlock()

	if _, found := ts.inProcess[tile.Rect]; !found {
		// someone else finished it first
		return nil
	}
	if err := ts.grid.Draw(tile); err != nil {
		return err
	}

	ts.finishedPixels += tile.Rect.Dx() * tile.Rect.Dy()
	delete(ts.inProcess, tile.Rect)

	if len(ts.unstarted) == 0 && len(ts.inProcess) == 0 {
		ts.ctxCancel()
	}
	return nil
}

func (ts *tileScheduler) incActiveWorkers() {
	ts.m.Lock()
	ts.workers++
	w := ts.workers
	ts.m.Unlock()

	log.Printf("workers: %d", w)
}

func (ts *tileScheduler) decActiveWorkers() {
	ts.m.Lock()
	ts.workers--
	w := ts.workers
	ts.m.Unlock()

	log.Printf("workers: %d", w)
}

// render renders unfinished tiles on renderer until none are left.
// It can be called from multiple goroutines in parallel. A failing renderer
// is dropped and its tile stays available to the others.
func (ts *tileScheduler) render(renderer mandel.Renderer) error {
	ts.incActiveWorkers()
	defer ts.decActiveWorkers()

	for {
		tile, found := ts.popTile()
		if !found {
			return nil
		}
		t, err := renderer.RenderTile(ts.cfg, tile)
		if err != nil {
			return fmt.Errorf("render of tile %s: %w", tile, err)
		}
		if err := ts.tileFinished(t); err != nil {
			return fmt.Errorf("tile %s: %w", tile, err)
		}
		log.Printf("finished: %f", ts.status().Progress)
	}
}
