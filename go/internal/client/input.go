package client

import "github.com/mcdev12/presence/go/internal/models"

// ScalePointer converts a pointer position on a display of displayW by
// displayH into surface coordinates. The result is not clamped.
func ScalePointer(px, py, displayW, displayH, surfaceW, surfaceH float64) models.Vec2 {
	if displayW == 0 || displayH == 0 {
		return models.Vec2{}
	}
	return models.Vec2{
		X: px * surfaceW / displayW,
		Y: py * surfaceH / displayH,
	}
}
