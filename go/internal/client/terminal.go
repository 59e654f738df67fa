package client

import (
	"context"
	"image/color"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/mcdev12/presence/go/internal/models"
)

// TerminalSurface draws the shared surface on a terminal. World coordinates
// are scaled to the current screen size in cells.
type TerminalSurface struct {
	screen     tcell.Screen
	worldW     float64
	worldH     float64
	background tcell.Style
}

func NewTerminalSurface(screen tcell.Screen, worldW, worldH float64) *TerminalSurface {
	return &TerminalSurface{
		screen:     screen,
		worldW:     worldW,
		worldH:     worldH,
		background: tcell.StyleDefault,
	}
}

func (t *TerminalSurface) Size() (float64, float64) { return t.worldW, t.worldH }

func (t *TerminalSurface) Clear() {
	t.screen.Fill(' ', t.background)
}

// toCell maps a world point onto the cell containing it
func (t *TerminalSurface) toCell(p models.Vec2) (int, int) {
	cols, rows := t.screen.Size()
	return int(math.Floor(p.X * float64(cols) / t.worldW)),
		int(math.Floor(p.Y * float64(rows) / t.worldH))
}

func (t *TerminalSurface) FillCircle(center models.Vec2, radius float64, c color.RGBA) {
	cols, rows := t.screen.Size()
	if cols == 0 || rows == 0 {
		return
	}
	style := t.background.Background(toTcell(c))
	cellW := t.worldW / float64(cols)
	cellH := t.worldH / float64(rows)

	cx, cy := t.toCell(center)
	spanX := int(math.Ceil(radius/cellW)) + 1
	spanY := int(math.Ceil(radius/cellH)) + 1
	for y := cy - spanY; y <= cy+spanY; y++ {
		for x := cx - spanX; x <= cx+spanX; x++ {
			if x < 0 || y < 0 || x >= cols || y >= rows {
				continue
			}
			mid := models.Vec2{X: (float64(x) + 0.5) * cellW, Y: (float64(y) + 0.5) * cellH}
			if mid.Dist(center) <= radius || (x == cx && y == cy) {
				t.screen.SetContent(x, y, ' ', nil, style)
			}
		}
	}
}

func (t *TerminalSurface) DrawLabel(anchor models.Vec2, text string, c color.RGBA) {
	cols, rows := t.screen.Size()
	ax, ay := t.toCell(anchor)
	if ay < 0 || ay >= rows {
		return
	}
	runes := []rune(text)
	style := t.background.Foreground(toTcell(c))
	start := ax - len(runes)/2
	for i, r := range runes {
		x := start + i
		if x < 0 || x >= cols {
			continue
		}
		t.screen.SetContent(x, ay, r, nil, style)
	}
}

func (t *TerminalSurface) Show() {
	t.screen.Show()
}

func toTcell(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// RunTerminal plays session on screen. A left click sets the target; q, Esc
// or Ctrl-C leave. screen must be initialised and is finalised on return.
func RunTerminal(ctx context.Context, session *Session, screen tcell.Screen) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	screen.EnableMouse()
	cfg := session.Config()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					cancel()
				}
			case *tcell.EventMouse:
				if ev.Buttons()&tcell.Button1 == 0 {
					continue
				}
				x, y := ev.Position()
				w, h := screen.Size()
				p := ScalePointer(float64(x)+0.5, float64(y)+0.5, float64(w), float64(h),
					cfg.SurfaceWidth, cfg.SurfaceHeight)
				session.SetTarget(p.X, p.Y)
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()

	err := session.Run(ctx)
	screen.Fini()
	wg.Wait()
	return err
}
