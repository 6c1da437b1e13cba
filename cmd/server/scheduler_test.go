package main

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mandel "github.com/marben/mandelgray"
)

func wantGrid(t *testing.T, cfg mandel.Config) *mandel.Grid {
	t.Helper()
	g, err := mandel.Render(context.Background(), cfg, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return g
}

func waitGrid(t *testing.T, ts *tileScheduler) *mandel.Grid {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	g, err := ts.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return g
}

func TestSchedulerSingleRenderer(t *testing.T) {
	cfg := mandel.Config{Width: 130, Height: 70, Iterations: 30}
	ts := newTileScheduler(cfg, 16)
	if ts.totalTiles != 9*5 {
		t.Fatalf("totalTiles = %d, want 45", ts.totalTiles)
	}

	if err := ts.render(mandel.LocalRenderer{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !waitGrid(t, ts).Equal(wantGrid(t, cfg)) {
		t.Error("scheduled grid differs from Render")
	}

	st := ts.status()
	if st.FinishedTiles != st.TotalTiles || st.Progress != 1 || st.Workers != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestSchedulerManyRenderers(t *testing.T) {
	cfg := mandel.Config{Width: 200, Height: 120, Iterations: 30}
	ts := newTileScheduler(cfg, 32)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ts.render(mandel.LocalRenderer{}); err != nil {
				t.Errorf("render: %v", err)
			}
		}()
	}
	wg.Wait()

	if !waitGrid(t, ts).Equal(wantGrid(t, cfg)) {
		t.Error("scheduled grid differs from Render")
	}
}

type failingRenderer struct {
	calls atomic.Int32
}

func (f *failingRenderer) RenderTile(mandel.Config, image.Rectangle) (*mandel.Tile, error) {
	f.calls.Add(1)
	return nil, errors.New("renderer lost")
}

func TestSchedulerFailedRendererLeavesTile(t *testing.T) {
	cfg := mandel.Config{Width: 64, Height: 64, Iterations: 30}
	ts := newTileScheduler(cfg, 32)

	bad := &failingRenderer{}
	if err := ts.render(bad); err == nil {
		t.Fatal("render on a failing renderer returned nil")
	}
	if got := bad.calls.Load(); got != 1 {
		t.Errorf("failing renderer called %d times, want 1", got)
	}

	st := ts.status()
	if st.FinishedTiles != 0 || st.Workers != 0 {
		t.Errorf("status after failure = %+v", st)
	}
	select {
	case <-ts.Done():
		t.Fatal("done after a failed render")
	default:
	}

	// the abandoned tile is picked up again
	if err := ts.render(mandel.LocalRenderer{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !waitGrid(t, ts).Equal(wantGrid(t, cfg)) {
		t.Error("scheduled grid differs from Render")
	}
}

func TestSchedulerIgnoresDuplicateTiles(t *testing.T) {
	cfg := mandel.Config{Width: 8, Height: 8, Iterations: 30}
	ts := newTileScheduler(cfg, 8)

	rect, ok := ts.popTile()
	if !ok || rect != image.Rect(0, 0, 8, 8) {
		t.Fatalf("popTile = %s, %v", rect, ok)
	}
	// with nothing unstarted the in-progress tile is handed out again
	if again, ok := ts.popTile(); !ok || again != rect {
		t.Fatalf("second popTile = %s, %v", again, ok)
	}

	tile, err := mandel.RenderTile(cfg, rect)
	if err != nil {
		t.Fatal(err)
	}
	if err := ts.tileFinished(tile); err != nil {
		t.Fatalf("tileFinished: %v", err)
	}
	// a late duplicate must not touch the finished grid
	late := &mandel.Tile{Rect: rect, Cells: make([]bool, 64)}
	if err := ts.tileFinished(late); err != nil {
		t.Fatalf("duplicate tileFinished: %v", err)
	}
	if !waitGrid(t, ts).Equal(wantGrid(t, cfg)) {
		t.Error("late duplicate overwrote the grid")
	}
	if st := ts.status(); st.Progress != 1 {
		t.Errorf("progress = %f, want 1", st.Progress)
	}
	if _, ok := ts.popTile(); ok {
		t.Error("popTile after completion found a tile")
	}
}

func TestSchedulerWaitCancelled(t *testing.T) {
	ts := newTileScheduler(mandel.Config{Width: 8, Height: 8, Iterations: 30}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ts.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSchedulerGetImage(t *testing.T) {
	cfg := mandel.Config{Width: 40, Height: 24, Iterations: 30}
	ts := newTileScheduler(cfg, 16)

	type result struct {
		pg  mandel.PackedGrid
		err error
	}
	resC := make(chan result, 1)
	go func() {
		pg, err := ts.GetImage(context.Background())
		resC <- result{pg, err}
	}()

	if err := ts.render(mandel.LocalRenderer{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	res := <-resC
	if res.err != nil {
		t.Fatalf("GetImage: %v", res.err)
	}
	g, err := res.pg.Grid()
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if !g.Equal(wantGrid(t, cfg)) {
		t.Error("GetImage grid differs from Render")
	}
}

func TestSchedulerGetImageCancelled(t *testing.T) {
	ts := newTileScheduler(mandel.Config{Width: 8, Height: 8, Iterations: 30}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ts.GetImage(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
