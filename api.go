package mandel

import (
	"context"
	"image"
)

//go:generate go run github.com/marben/irpc/cmd/irpc $GOFILE

// ImgProvider hands out the finished image.
type ImgProvider interface {
	// GetImage blocks until every tile is rendered or ctx is done.
	GetImage(ctx context.Context) (PackedGrid, error)
}

// Renderer classifies one tile of the grid described by cfg.
type Renderer interface {
	RenderTile(cfg Config, tile image.Rectangle) (*Tile, error)
}

// LocalRenderer renders tiles in the calling goroutine.
type LocalRenderer struct {
	// OnTileRender is called before each tile, if set.
	OnTileRender func(tile image.Rectangle)
}

func (lr LocalRenderer) RenderTile(cfg Config, tile image.Rectangle) (*Tile, error) {
	if lr.OnTileRender != nil {
		lr.OnTileRender(tile)
	}
	return RenderTile(cfg, tile)
}

var _ Renderer = LocalRenderer{}
