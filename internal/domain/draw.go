package domain

import "fmt"

// DrawEvent is the unit of mutation and of broadcast payload.
type DrawEvent struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Color int `json:"color"`
}

func (e DrawEvent) String() string {
	return fmt.Sprintf("(%d,%d)=%d", e.X, e.Y, e.Color)
}

// Quadrant is a fixed Q×Q tile of the canvas. X and Y are the coordinates of
// its top-left cell.
type Quadrant struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}
