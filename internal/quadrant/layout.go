package quadrant

import (
	"fmt"

	"github.com/pscheid92/pixelgrid/internal/domain"
)

// Layout maps canvas coordinates to quadrant ids. Quadrant (tx, ty) has id
// tx + ty*cols, with cols = ceil(width/size).
type Layout struct {
	Width  int
	Height int
	Size   int

	cols int
	rows int
}

func NewLayout(width, height, size int) (Layout, error) {
	if width <= 0 || height <= 0 {
		return Layout{}, fmt.Errorf("canvas dimensions must be positive, got %dx%d", width, height)
	}
	if size <= 0 {
		return Layout{}, fmt.Errorf("quadrant size must be positive, got %d", size)
	}
	return Layout{
		Width:  width,
		Height: height,
		Size:   size,
		cols:   ceilDiv(width, size),
		rows:   ceilDiv(height, size),
	}, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Count returns the number of quadrants.
func (l Layout) Count() int {
	return l.cols * l.rows
}

// Valid reports whether id names an existing quadrant.
func (l Layout) Valid(id int) bool {
	return id >= 0 && id < l.Count()
}

// QuadrantOf returns the id of the quadrant containing (x, y).
func (l Layout) QuadrantOf(x, y int) (int, error) {
	if x < 0 || x >= l.Width || y < 0 || y >= l.Height {
		return 0, fmt.Errorf("%w: (%d,%d) outside %dx%d", domain.ErrOutOfBounds, x, y, l.Width, l.Height)
	}
	return x/l.Size + (y/l.Size)*l.cols, nil
}

// Enumerate lists every quadrant in row-major order with its top-left
// corner in canvas coordinates.
func (l Layout) Enumerate() []domain.Quadrant {
	quadrants := make([]domain.Quadrant, 0, l.Count())
	for ty := range l.rows {
		for tx := range l.cols {
			quadrants = append(quadrants, domain.Quadrant{
				ID: tx + ty*l.cols,
				X:  tx * l.Size,
				Y:  ty * l.Size,
			})
		}
	}
	return quadrants
}

// Configuration builds the message handed to every new connection.
func (l Layout) Configuration() domain.ConfigurationMessage {
	return domain.ConfigurationMessage{
		Type:         domain.MessageConfiguration,
		Width:        l.Width,
		Height:       l.Height,
		QuadrantSize: l.Size,
		Quadrants:    l.Enumerate(),
	}
}
