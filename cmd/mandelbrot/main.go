// mandelbrot renders the canonical full-set view on all local cores and
// saves it as a grayscale png.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	mandel "github.com/marben/mandelgray"
)

func main() {
	width := flag.Int("width", mandel.DefaultWidth, "image width in pixels")
	height := flag.Int("height", mandel.DefaultHeight, "image height in pixels")
	iter := flag.Int("iter", mandel.DefaultIterations, "iteration budget per pixel")
	workers := flag.Int("workers", 0, "number of render goroutines, 0 for one per cpu")
	out := flag.String("out", "mandelbrot.png", "output png file")
	flag.Parse()

	if err := run(*width, *height, *iter, *workers, *out); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run(width, height, iter, workers int, out string) error {
	cfg, err := mandel.NewConfig(width, height, iter)
	if err != nil {
		return err
	}

	start := time.Now()
	grid, err := mandel.Render(context.Background(), cfg, workers)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	log.Printf("generated mandelbrot fractal in %s", time.Since(start))

	if err := mandel.WritePNG(out, grid); err != nil {
		return err
	}
	log.Printf("saved to %q", out)
	return nil
}
