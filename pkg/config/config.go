// Package config defines the on-disk YAML configuration.
package config

import (
	"fmt"
	"image/color"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/xaionaro-go/vcamstudio/pkg/colorx"
)

// Color is an RGB color serialized as "#rrggbb".
type Color struct {
	R, G, B uint8
}

var _ yaml.BytesMarshaler = (*Color)(nil)
var _ yaml.BytesUnmarshaler = (*Color)(nil)

func (c Color) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(colorx.Format(c.RGBA()))
}

func (c *Color) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("unable to unserialize a color: %w", err)
	}
	parsed, err := colorx.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid color '%s': %w", s, err)
	}
	c.R, c.G, c.B = parsed.R, parsed.G, parsed.B
	return nil
}

// RGBA converts to the image/color representation with full alpha.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

type Canvas struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             float64 `yaml:"fps"`
	BackgroundColor Color   `yaml:"background_color"`
}

type Camera struct {
	DeviceID       int     `yaml:"device_id"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	FPS            float64 `yaml:"fps"`
	FlipHorizontal bool    `yaml:"flip_horizontal"`
}

type Overlay struct {
	Enable    bool    `yaml:"enable"`
	ImagePath string  `yaml:"image_path"`
	Opacity   float64 `yaml:"opacity"`
}

type Ticker struct {
	Enable    bool    `yaml:"enable"`
	TextFile  string  `yaml:"text_file"`
	Text      string  `yaml:"text"`
	Speed     float64 `yaml:"speed"`
	FontSize  int     `yaml:"font_size"`
	FontColor Color   `yaml:"font_color"`
	BarColor  Color   `yaml:"bar_color"`
	BarHeight int     `yaml:"bar_height"`
	Opacity   float64 `yaml:"opacity"`
	Position  string  `yaml:"position"`
}

type Countdown struct {
	Duration time.Duration `yaml:"duration"`
	Position string        `yaml:"position"`
	Label    string        `yaml:"label"`
}

type Indicators struct {
	File           string        `yaml:"file"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
	Position       string        `yaml:"position"`
}

type Preview struct {
	Enable     bool   `yaml:"enable"`
	ListenAddr string `yaml:"listen_addr"`
}

type RawOutput struct {
	Enable      bool   `yaml:"enable"`
	PixelFormat string `yaml:"pixel_format"`

	// Width and Height, when non-zero, are the frame size the consumer
	// expects; composed frames are scaled down (or up) to match.
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

type Config struct {
	Canvas     Canvas     `yaml:"canvas"`
	Camera     Camera     `yaml:"camera"`
	Overlay    Overlay    `yaml:"overlay"`
	Ticker     Ticker     `yaml:"ticker"`
	Countdown  Countdown  `yaml:"countdown"`
	Indicators Indicators `yaml:"indicators"`
	Preview    Preview    `yaml:"preview"`
	RawOutput  RawOutput  `yaml:"raw_output"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Canvas: Canvas{
			Width:           1280,
			Height:          720,
			FPS:             30,
			BackgroundColor: Color{},
		},
		Camera: Camera{
			DeviceID: 0,
			Width:    1280,
			Height:   720,
			FPS:      30,
		},
		Overlay: Overlay{
			Opacity: 1,
		},
		Ticker: Ticker{
			Speed:     2,
			FontSize:  28,
			FontColor: Color{R: 0xff, G: 0xff, B: 0xff},
			BarColor:  Color{R: 0x1e, G: 0x1e, B: 0x1e},
			BarHeight: 50,
			Opacity:   0.85,
			Position:  "bottom",
		},
		Countdown: Countdown{
			Duration: 5 * time.Minute,
			Position: "top-right",
			Label:    "TIMER",
		},
		Indicators: Indicators{
			ReloadInterval: 5 * time.Second,
			Position:       "top-left",
		},
		Preview: Preview{
			Enable:     true,
			ListenAddr: "127.0.0.1:8554",
		},
		RawOutput: RawOutput{
			PixelFormat: "rgba",
		},
	}
}
