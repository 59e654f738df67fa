// Package render draws one frame of the shared scene: every remote actor
// first, then the local actor on top.
package render

import (
	"image/color"

	"github.com/mcdev12/presence/go/internal/models"
)

// LabelGap is the vertical space between the top of an avatar and its name
const LabelGap = 6.0

// LabelColor is used for every name label
var LabelColor = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}

// Surface is anything a frame can be drawn on
type Surface interface {
	Size() (w, h float64)
	Clear()
	FillCircle(center models.Vec2, radius float64, c color.RGBA)
	DrawLabel(anchor models.Vec2, text string, c color.RGBA)
}

// Presenter is implemented by surfaces that need an explicit flush after a
// frame has been drawn
type Presenter interface {
	Show()
}

// Render clears s and draws the scene. Remote actors are drawn in map order
// and the local actor last, so it is never hidden by a remote one. A nil
// local actor draws a spectator frame holding only remote actors.
func Render(s Surface, local *models.Actor, remote map[string]models.ActorState, radius float64) {
	s.Clear()
	for _, st := range remote {
		drawActor(s, st, radius)
	}
	if local != nil {
		drawActor(s, local.ActorState, radius)
	}
}

func drawActor(s Surface, st models.ActorState, radius float64) {
	center := st.Position()
	s.FillCircle(center, radius, ParseColor(st.Color))
	s.DrawLabel(LabelAnchor(center, radius), st.DisplayName, LabelColor)
}

// LabelAnchor is the point a name label is centred on for an avatar at center
func LabelAnchor(center models.Vec2, radius float64) models.Vec2 {
	return models.Vec2{X: center.X, Y: center.Y - radius - LabelGap}
}
