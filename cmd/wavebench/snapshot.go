package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"wavesim"
)

// snapshotImage colormaps f and scales it by an integer factor with
// nearest-neighbour sampling so cells stay sharp.
func snapshotImage(f *wavesim.Field, scale int) *image.RGBA {
	src := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	wavesim.Colorize(f, src)
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, f.Width*scale, f.Height*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// writeSnapshot encodes the colormap of f as a PNG at path.
func writeSnapshot(path string, f *wavesim.Field, scale int) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	if err := png.Encode(out, snapshotImage(f, scale)); err != nil {
		out.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return out.Close()
}
