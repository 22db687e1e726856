package main

import (
	"math"
	"math/rand"
)

const (
	defaultStepsPerFrame = 4
	minStepsPerFrame     = 1
	maxStepsPerFrame     = 512

	emitterRadius = 3
	moveSpeed     = 2
	// impulseDelay is the number of moving frames between impulses.
	impulseDelay = 15
)

// adjustStepsPerFrame doubles or halves the batch size within bounds.
func adjustStepsPerFrame(cur int, faster bool) int {
	if faster {
		cur *= 2
	} else {
		cur /= 2
	}
	return min(max(cur, minStepsPerFrame), maxStepsPerFrame)
}

// scaleMovement applies moveSpeed to a key direction and normalizes
// diagonals.
func scaleMovement(dx, dy float64) (float64, float64) {
	dx *= moveSpeed
	dy *= moveSpeed
	if dx != 0 && dy != 0 {
		dx *= 0.7071
		dy *= 0.7071
	}
	return dx, dy
}

// walker produces pseudo-random headings for scripted movement.
type walker struct {
	rng        *rand.Rand
	dirX, dirY float64
	frames     int
}

func newWalker(seed int64) *walker {
	return &walker{rng: rand.New(rand.NewSource(seed))}
}

// next returns the movement for one frame from (x, y), picking a new heading
// whenever the current one runs out or would leave the width by height grid.
func (w *walker) next(x, y float64, width, height int) (float64, float64) {
	for attempts := 0; attempts < 5; attempts++ {
		if w.frames <= 0 {
			angle := w.rng.Float64() * 2 * math.Pi
			w.dirX, w.dirY = math.Cos(angle), math.Sin(angle)
			w.frames = 20 + w.rng.Intn(50)
		}
		nx := x + w.dirX*moveSpeed
		ny := y + w.dirY*moveSpeed
		if nx > emitterRadius && nx < float64(width-emitterRadius-1) &&
			ny > emitterRadius && ny < float64(height-emitterRadius-1) {
			w.frames--
			return w.dirX * moveSpeed, w.dirY * moveSpeed
		}
		w.frames = 0
	}
	return 0, 0
}
