package mandel

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// PackedGrid is a Grid compressed for the wire: cells are bit packed and
// then zstd compressed.
type PackedGrid struct {
	Width, Height int
	Cells         []byte
}

// PackGrid compresses g.
func PackGrid(g *Grid) (PackedGrid, error) {
	data, err := compressZstd(PackBits(g.Cells))
	if err != nil {
		return PackedGrid{}, err
	}
	return PackedGrid{Width: g.Width, Height: g.Height, Cells: data}, nil
}

// Grid decompresses pg. It never inflates more than the cells a grid of
// pg's dimensions can hold.
func (pg PackedGrid) Grid() (*Grid, error) {
	if pg.Width <= 0 || pg.Height <= 0 {
		return nil, fmt.Errorf("packed grid has dimensions %dx%d", pg.Width, pg.Height)
	}
	n := pg.Width * pg.Height
	packed, err := decompressZstd(pg.Cells, (n+7)/8)
	if err != nil {
		return nil, err
	}
	cells, err := UnpackBits(packed, n)
	if err != nil {
		return nil, err
	}
	return &Grid{Width: pg.Width, Height: pg.Height, Cells: cells}, nil
}

// PackBits packs cells into bytes, eight per byte, most significant bit first.
func PackBits(cells []bool) []byte {
	out := make([]byte, (len(cells)+7)/8)
	for i, v := range cells {
		if v {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

// UnpackBits is the inverse of PackBits for n cells.
func UnpackBits(packed []byte, n int) ([]bool, error) {
	if want := (n + 7) / 8; len(packed) != want {
		return nil, fmt.Errorf("unpack %d cells: got %d bytes, want %d", n, len(packed), want)
	}
	cells := make([]bool, n)
	for i := range cells {
		cells[i] = packed[i/8]&(0x80>>(i%8)) != 0
	}
	return cells, nil
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

func compressZstd(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	enc.Reset(&buf)

	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("zstd write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd close: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressZstd inflates data, failing once the output exceeds limit bytes.
func decompressZstd(data []byte, limit int) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("zstd reset: %w", err)
	}

	var out bytes.Buffer
	// one byte past the limit tells a full buffer from an oversized stream
	if _, err := out.ReadFrom(io.LimitReader(dec, int64(limit)+1)); err != nil {
		return nil, fmt.Errorf("zstd read: %w", err)
	}
	if out.Len() > limit {
		return nil, fmt.Errorf("zstd stream inflates past %d bytes", limit)
	}
	return out.Bytes(), nil
}
