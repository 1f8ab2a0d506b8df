package badge

import (
	"fmt"
	"strings"
)

// Position names the corner (or center) of the icon the badge is anchored to.
type Position string

const (
	PositionTopLeft     Position = "topLeft"
	PositionTopRight    Position = "topRight"
	PositionBottomLeft  Position = "bottomLeft"
	PositionBottomRight Position = "bottomRight"
	PositionCenter      Position = "center"
)

// ValidPositions returns all valid badge positions.
func ValidPositions() []Position {
	return []Position{
		PositionTopLeft,
		PositionTopRight,
		PositionBottomLeft,
		PositionBottomRight,
		PositionCenter,
	}
}

// Valid reports whether p is a known position.
func (p Position) Valid() bool {
	for _, v := range ValidPositions() {
		if p == v {
			return true
		}
	}
	return false
}

// ParsePosition accepts the canonical names as well as kebab-case
// ("bottom-right") and any casing.
func ParsePosition(s string) (Position, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for _, p := range ValidPositions() {
		if strings.ToLower(string(p)) == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of %v)", ErrInvalidPosition, s, ValidPositions())
}

// Point is a badge center in icon pixel coordinates.
type Point struct {
	X, Y float64
}

// Center returns the center of a badge of the given radius on a square icon
// of imageSize pixels. Positions are validated at construction; an unknown
// position falls back to bottom-right.
func Center(imageSize, size int, pos Position) Point {
	s := float64(imageSize)
	r := float64(size)

	switch pos {
	case PositionTopLeft:
		return Point{X: r, Y: r}
	case PositionTopRight:
		return Point{X: s - r, Y: r}
	case PositionBottomLeft:
		return Point{X: r, Y: s - r}
	case PositionCenter:
		return Point{X: s / 2, Y: s / 2}
	default:
		return Point{X: s - r, Y: s - r}
	}
}
