package display

import (
	"hash/crc32"
	"sync"
)

const (
	Width  = 64
	Height = 32
)

// Frame is a copy of the pixel grid, indexed [y][x]. Every cell is 0 or 1.
type Frame [Height][Width]byte

// Lit reports whether the pixel at (x, y) is set.
func (f *Frame) Lit(x, y int) bool { return f[y][x] != 0 }

// Count returns the number of set pixels.
func (f *Frame) Count() int {
	n := 0
	for y := range f {
		for x := range f[y] {
			n += int(f[y][x])
		}
	}
	return n
}

// CRC32 checksums the cells row by row. Headless runs compare it against
// known-good frames.
func (f *Frame) CRC32() uint32 {
	h := crc32.NewIEEE()
	for y := range f {
		h.Write(f[y][:])
	}
	return h.Sum32()
}

// Display is the 64x32 monochrome framebuffer. Draw and Clear are called
// from the CPU; renderers read through Snapshot from any goroutine.
type Display struct {
	mu      sync.RWMutex
	px      Frame
	version uint64
}

func New() *Display { return &Display{} }

// Draw XORs an 8-pixel-wide sprite, one byte per row, onto the grid with
// its top-left corner at (x0, y0). Coordinates wrap around both edges.
// Returns 1 if any set pixel was erased, else 0.
func (d *Display) Draw(sprite []byte, x0, y0 byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	var collision byte
	for r, row := range sprite {
		y := (int(y0) + r) % Height
		for c := 0; c < 8; c++ {
			bit := (row >> (7 - c)) & 1
			x := (int(x0) + c) % Width
			if d.px[y][x] == 1 && bit == 1 {
				collision = 1
			}
			d.px[y][x] ^= bit
		}
	}
	d.version++
	return collision
}

func (d *Display) Clear() {
	d.mu.Lock()
	d.px = Frame{}
	d.version++
	d.mu.Unlock()
}

// Snapshot returns a copy of the current grid.
func (d *Display) Snapshot() Frame {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.px
}

// Version increments on every Draw or Clear; renderers use it to skip
// redundant redraws.
func (d *Display) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Restore overwrites the grid, e.g. when loading a save state. Cells are
// normalised to 0/1.
func (d *Display) Restore(f Frame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for y := range f {
		for x := range f[y] {
			d.px[y][x] = f[y][x] & 1
		}
	}
	d.version++
}
