package tuning

import (
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/mcdev12/presence/go/internal/publish"
)

// Config holds the shared surface and motion settings. Every client in a
// deployment must agree on SurfaceWidth, SurfaceHeight and Radius.
type Config struct {
	SurfaceWidth       float64       `yaml:"surface_width" mapstructure:"surface_width"`
	SurfaceHeight      float64       `yaml:"surface_height" mapstructure:"surface_height"`
	Radius             float64       `yaml:"radius" mapstructure:"radius"`
	Speed              float64       `yaml:"speed" mapstructure:"speed"`
	FrameRate          int           `yaml:"frame_rate" mapstructure:"frame_rate"`
	PublishPolicy      string        `yaml:"publish_policy" mapstructure:"publish_policy"`
	PublishInterval    time.Duration `yaml:"publish_interval" mapstructure:"publish_interval"`
	PublishMinDistance float64       `yaml:"publish_min_distance" mapstructure:"publish_min_distance"`
	Palette            []string      `yaml:"palette" mapstructure:"palette"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		SurfaceWidth:       800,
		SurfaceHeight:      600,
		Radius:             20,
		Speed:              4,
		FrameRate:          60,
		PublishPolicy:      publish.PolicyThrottle,
		PublishInterval:    50 * time.Millisecond,
		PublishMinDistance: 2,
		Palette: []string{
			"#e6194b", "#3cb44b", "#4363d8", "#f58231",
			"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
		},
	}
}

var ErrInvalidConfig = errors.New("invalid tuning config")

func (c Config) Validate() error {
	switch {
	case c.SurfaceWidth <= 0 || c.SurfaceHeight <= 0:
		return fmt.Errorf("%w: surface must have a positive size", ErrInvalidConfig)
	case c.Radius <= 0 || 2*c.Radius > c.SurfaceWidth || 2*c.Radius > c.SurfaceHeight:
		return fmt.Errorf("%w: radius %.1f does not fit the surface", ErrInvalidConfig, c.Radius)
	case c.Speed <= 0:
		return fmt.Errorf("%w: speed must be positive", ErrInvalidConfig)
	case c.FrameRate <= 0:
		return fmt.Errorf("%w: frame_rate must be positive", ErrInvalidConfig)
	}
	if _, err := publish.NewPolicy(c.PublishPolicy, c.ThrottleConfig()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// FrameInterval is the period of the tick loop
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func (c Config) ThrottleConfig() publish.ThrottleConfig {
	return publish.ThrottleConfig{
		Interval:    c.PublishInterval,
		MinDistance: c.PublishMinDistance,
	}
}

// ColorFor picks a stable palette colour for an actor
func (c Config) ColorFor(actorID string) string {
	if len(c.Palette) == 0 {
		return "#808080"
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(actorID))
	return c.Palette[h.Sum32()%uint32(len(c.Palette))]
}

// SpawnRange returns the bounds spawn positions must lie within so the whole
// avatar is on the surface
func (c Config) SpawnRange() (minX, minY, maxX, maxY float64) {
	return c.Radius, c.Radius, c.SurfaceWidth - c.Radius, c.SurfaceHeight - c.Radius
}
