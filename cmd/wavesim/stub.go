//go:build !ebiten

// Command wavesim is the interactive viewer. It needs a display and is
// only built with -tags ebiten.
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "wavesim: viewer support is not enabled; rebuild with -tags ebiten")
	os.Exit(2)
}
