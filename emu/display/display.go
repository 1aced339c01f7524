// Package display holds the 64x32 monochrome pixel buffer of the machine.
package display

import "sync"

const (
	Width  = 64
	Height = 32
)

// Frame is a copy of the pixel grid, row major.
type Frame [Width * Height]bool

// Pixel returns the state of the pixel at x, y. Coordinates outside the
// grid read as unset.
func (f *Frame) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return f[y*Width+x]
}

// Buffer is the display written by the executor and read by a renderer.
// All access goes through the mutex so a renderer never sees a half
// drawn sprite row.
type Buffer struct {
	mu     sync.RWMutex
	pixels Frame
	dirty  bool //set by clear and draw, reset by TakeDirty
}

func New() *Buffer {
	return &Buffer{}
}

// Clear unsets every pixel.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.pixels = Frame{}
	b.dirty = true
	b.mu.Unlock()
}

func (b *Buffer) Pixel(x, y int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pixels.Pixel(x, y)
}

// DrawSprite XORs sprite rows into the buffer top to bottom starting
// at x, y. Each row is 8 bits wide, most significant bit leftmost.
// Pixels past the right or bottom edge wrap around when wrap is set and
// are dropped otherwise. It reports whether any previously set pixel
// was unset. All rows are drawn under one lock, a snapshot never sees
// part of a sprite.
func (b *Buffer) DrawSprite(x, y int, rows []uint8, wrap bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	collision := false
	for i, bits := range rows {
		if b.drawRow(x, y+i, bits, wrap) {
			collision = true
		}
	}
	return collision
}

func (b *Buffer) drawRow(x, y int, bits uint8, wrap bool) bool {
	if y >= Height {
		if !wrap {
			return false
		}
		y %= Height
	}

	collision := false
	for bit := 0; bit < 8; bit++ {
		if bits&(0x80>>bit) == 0 {
			continue
		}
		px := x + bit
		if px >= Width {
			if !wrap {
				break
			}
			px %= Width
		}
		i := y*Width + px
		if b.pixels[i] {
			collision = true
		}
		b.pixels[i] = !b.pixels[i]
	}
	b.dirty = true
	return collision
}

// Snapshot returns a copy of the current pixels.
func (b *Buffer) Snapshot() Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pixels
}

// TakeDirty reports whether the buffer changed since the last call.
func (b *Buffer) TakeDirty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	dirty := b.dirty
	b.dirty = false
	return dirty
}

// SnapshotIfDirty returns a copy of the pixels and true if the buffer
// changed since the last TakeDirty or SnapshotIfDirty call.
func (b *Buffer) SnapshotIfDirty() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.dirty {
		return Frame{}, false
	}
	b.dirty = false
	return b.pixels, true
}
