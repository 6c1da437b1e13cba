package main

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	mandel "github.com/marben/mandelgray"
)

func TestRun(t *testing.T) {
	out := filepath.Join(t.TempDir(), "mandelbrot.png")
	if err := run(40, 30, 30, 3, out); err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("decoded %T, want *image.Gray", img)
	}
	if gray.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Fatalf("bounds = %s", gray.Bounds())
	}
	// centre pixel maps to the origin
	if gray.GrayAt(20, 15).Y != 255 {
		t.Error("centre pixel is not white")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	err := run(0, 30, 30, 1, filepath.Join(t.TempDir(), "x.png"))
	if !errors.Is(err, mandel.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestRunUnwritableOutput(t *testing.T) {
	if err := run(4, 4, 30, 1, filepath.Join(t.TempDir(), "missing", "x.png")); err == nil {
		t.Error("run into a missing directory succeeded")
	}
}
