package client

import (
	"testing"

	"github.com/mcdev12/presence/go/internal/models"
)

func TestScalePointer(t *testing.T) {
	tests := []struct {
		name           string
		px, py, dw, dh float64
		want           models.Vec2
	}{
		{"same size", 100, 50, 800, 600, models.Vec2{X: 100, Y: 50}},
		{"half size display", 100, 50, 400, 300, models.Vec2{X: 200, Y: 100}},
		{"terminal cells", 40.5, 12.5, 80, 24, models.Vec2{X: 405, Y: 312.5}},
		{"outside display", -10, 700, 800, 600, models.Vec2{X: -10, Y: 700}},
		{"zero display", 10, 10, 0, 0, models.Vec2{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScalePointer(tt.px, tt.py, tt.dw, tt.dh, 800, 600)
			if got != tt.want {
				t.Fatalf("ScalePointer = %+v, want %+v", got, tt.want)
			}
		})
	}
}
