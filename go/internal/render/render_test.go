package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/mcdev12/presence/go/internal/models"
)

type call struct {
	op     string
	center models.Vec2
	text   string
	color  color.RGBA
}

type recordingSurface struct {
	calls []call
}

func (s *recordingSurface) Size() (float64, float64) { return 800, 600 }

func (s *recordingSurface) Clear() { s.calls = append(s.calls, call{op: "clear"}) }

func (s *recordingSurface) FillCircle(center models.Vec2, _ float64, c color.RGBA) {
	s.calls = append(s.calls, call{op: "circle", center: center, color: c})
}

func (s *recordingSurface) DrawLabel(anchor models.Vec2, text string, c color.RGBA) {
	s.calls = append(s.calls, call{op: "label", center: anchor, text: text, color: c})
}

func (s *recordingSurface) circles() []call {
	var out []call
	for _, c := range s.calls {
		if c.op == "circle" {
			out = append(out, c)
		}
	}
	return out
}

func TestRenderDrawsRemotePlusLocal(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		remote := map[string]models.ActorState{}
		for i := 0; i < n; i++ {
			remote[string(rune('a'+i))] = models.ActorState{X: float64(i * 10), Y: 5, DisplayName: "r", Color: "#00f"}
		}
		local := &models.Actor{ID: "me", ActorState: models.ActorState{X: 400, Y: 300, DisplayName: "me", Color: "#f00"}}

		s := &recordingSurface{}
		Render(s, local, remote, 20)

		circles := s.circles()
		if len(circles) != n+1 {
			t.Fatalf("remote=%d: drew %d avatars, want %d", n, len(circles), n+1)
		}
		last := circles[len(circles)-1]
		if last.center != (models.Vec2{X: 400, Y: 300}) {
			t.Fatalf("remote=%d: local actor not drawn last, last circle at %+v", n, last.center)
		}
		if s.calls[0].op != "clear" {
			t.Fatalf("frame did not start with clear")
		}
	}
}

func TestRenderSpectatorDrawsOnlyRemote(t *testing.T) {
	remote := map[string]models.ActorState{
		"b": {X: 1, Y: 1},
		"c": {X: 2, Y: 2},
	}
	s := &recordingSurface{}
	Render(s, nil, remote, 20)
	if got := len(s.circles()); got != 2 {
		t.Fatalf("drew %d avatars, want 2", got)
	}
}

func TestRenderLabelsAboveAvatar(t *testing.T) {
	local := &models.Actor{ActorState: models.ActorState{X: 100, Y: 100, DisplayName: "ana"}}
	s := &recordingSurface{}
	Render(s, local, nil, 20)

	var label *call
	for i := range s.calls {
		if s.calls[i].op == "label" {
			label = &s.calls[i]
		}
	}
	if label == nil {
		t.Fatal("no label drawn")
	}
	want := models.Vec2{X: 100, Y: 100 - 20 - LabelGap}
	if label.center != want || label.text != "ana" {
		t.Fatalf("label = %+v, want %q at %+v", *label, "ana", want)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.RGBA
	}{
		{"#ff0000", color.RGBA{R: 0xff, A: 0xff}},
		{"#0F0", color.RGBA{G: 0xff, A: 0xff}},
		{" #123456 ", color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xff}},
		{"Blue", color.RGBA{B: 0xff, A: 0xff}},
		{"", FallbackColor},
		{"#12", FallbackColor},
		{"#zzzzzz", FallbackColor},
		{"not-a-colour", FallbackColor},
	}
	for _, tt := range tests {
		if got := ParseColor(tt.in); got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHexColorRoundTrip(t *testing.T) {
	c := color.RGBA{R: 0x0a, G: 0xbc, B: 0xde, A: 0xff}
	if got := HexColor(c); got != "#0abcde" {
		t.Fatalf("HexColor = %q", got)
	}
	if got := ParseColor(HexColor(c)); got != c {
		t.Fatalf("ParseColor(HexColor) = %v, want %v", got, c)
	}
}

func TestImageSurfaceDrawsAvatar(t *testing.T) {
	s := NewImageSurface(100, 80)
	local := &models.Actor{ActorState: models.ActorState{X: 50, Y: 50, DisplayName: "x", Color: "#ff0000"}}
	Render(s, local, nil, 10)

	if got := s.Image().RGBAAt(50, 50); got != (color.RGBA{R: 0xff, A: 0xff}) {
		t.Fatalf("centre pixel = %v, want red", got)
	}
	if got := s.Image().RGBAAt(2, 2); got != Background {
		t.Fatalf("corner pixel = %v, want background", got)
	}

	var buf bytes.Buffer
	if err := s.EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestImageSurfaceClipsOffSurfaceCircles(t *testing.T) {
	s := NewImageSurface(20, 20)
	s.Clear()
	s.FillCircle(models.Vec2{X: -100, Y: 500}, 10, color.RGBA{A: 0xff})
	s.FillCircle(models.Vec2{X: 0, Y: 0}, 5, color.RGBA{B: 0xff, A: 0xff})
	if got := s.Image().RGBAAt(0, 0); got.B != 0xff {
		t.Fatalf("partially visible circle not drawn: %v", got)
	}
}
