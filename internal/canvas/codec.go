package canvas

import (
	"fmt"

	"github.com/pscheid92/pixelgrid/internal/domain"
)

const (
	// MaxColor is the highest palette index (16 colors).
	MaxColor    = 15
	bitsPerCell = 4
)

// Geometry describes a W×H canvas.
type Geometry struct {
	Width  int
	Height int
}

// NewGeometry validates and returns a canvas geometry.
func NewGeometry(width, height int) (Geometry, error) {
	if width <= 0 || height <= 0 {
		return Geometry{}, fmt.Errorf("canvas dimensions must be positive, got %dx%d", width, height)
	}
	return Geometry{Width: width, Height: height}, nil
}

// Cells returns W·H.
func (g Geometry) Cells() int {
	return g.Width * g.Height
}

// BufferLen returns the size of the packed buffer, ceil(W·H/2).
func (g Geometry) BufferLen() int {
	return (g.Cells() + 1) / 2
}

// Contains reports whether (x, y) lies on the canvas.
func (g Geometry) Contains(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Validate checks bounds and color of a single-cell write.
func (g Geometry) Validate(x, y, color int) error {
	if !g.Contains(x, y) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d", domain.ErrOutOfBounds, x, y, g.Width, g.Height)
	}
	return ValidateColor(color)
}

// Index returns the canonical row-major linear index of (x, y).
func (g Geometry) Index(x, y int) int {
	return y*g.Width + x
}

// BitOffset returns the bit offset of the nibble holding (x, y).
func (g Geometry) BitOffset(x, y int) (int64, error) {
	if !g.Contains(x, y) {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d", domain.ErrOutOfBounds, x, y, g.Width, g.Height)
	}
	return int64(g.Index(x, y)) * bitsPerCell, nil
}

// ValidateColor checks that color fits in four bits.
func ValidateColor(color int) error {
	if color < 0 || color > MaxColor {
		return fmt.Errorf("%w: %d not in [0,%d]", domain.ErrInvalidColor, color, MaxColor)
	}
	return nil
}

// Pack encodes a sequence of colors into a dense nibble buffer of length
// ceil(len(cells)/2).
func Pack(cells []uint8) ([]byte, error) {
	buf := make([]byte, (len(cells)+1)/2)
	for i, c := range cells {
		if c > MaxColor {
			return nil, fmt.Errorf("%w: cell %d has color %d", domain.ErrInvalidColor, i, c)
		}
		setNibble(buf, i, c)
	}
	return buf, nil
}

// Unpack decodes n colors from a packed buffer. Missing trailing bytes decode
// as color 0.
func Unpack(buf []byte, n int) []uint8 {
	cells := make([]uint8, n)
	for i := range cells {
		if i/2 >= len(buf) {
			break
		}
		cells[i] = nibble(buf, i)
	}
	return cells
}

// SetCell updates a single nibble in place. buf must cover index i.
func SetCell(buf []byte, i int, color uint8) {
	setNibble(buf, i, color)
}

// Cell reads a single nibble.
func Cell(buf []byte, i int) uint8 {
	return nibble(buf, i)
}

func setNibble(buf []byte, i int, c uint8) {
	b := &buf[i/2]
	if i%2 == 0 {
		*b = (*b & 0x0F) | (c << 4)
	} else {
		*b = (*b & 0xF0) | (c & 0x0F)
	}
}

func nibble(buf []byte, i int) uint8 {
	if i%2 == 0 {
		return buf[i/2] >> 4
	}
	return buf[i/2] & 0x0F
}
