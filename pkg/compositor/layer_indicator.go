package compositor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/vcamstudio/pkg/clock"
	"github.com/xaionaro-go/vcamstudio/pkg/colorx"
	"github.com/xaionaro-go/vcamstudio/pkg/textrender"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

// Indicator is a single status line: a colored dot followed by
// "LABEL: value".
type Indicator struct {
	Label string
	Value string
	Color color.RGBA
}

// IndicatorLayer draws a vertical stack of status indicators loaded from a
// file, optionally re-reading the file at a fixed interval.
//
// Two file formats are accepted. JSON:
//
//	[{"label": "REC", "value": "on", "color": [255, 0, 0]}]
//
// (color may also be a "#rrggbb" string) or plain text, one indicator per
// line:
//
//	REC: on
type IndicatorLayer struct {
	layerBase

	locker         xsync.Mutex
	items          []Indicator
	filePath       string
	reloadInterval time.Duration
	lastReload     time.Time
	fontSize       int
	fontColor      color.RGBA
	bgColor        color.RGBA
	position       Position
	padding        int
	lineSpacing    int
}

func NewIndicatorLayer(zOrder int) *IndicatorLayer {
	l := &IndicatorLayer{
		reloadInterval: 5 * time.Second,
		fontSize:       20,
		fontColor:      color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		bgColor:        color.RGBA{R: 0x14, G: 0x14, B: 0x14, A: 0xff},
		position:       PositionTopLeft,
		padding:        10,
		lineSpacing:    8,
	}
	l.layerBase.init("indicators", zOrder)
	return l
}

type indicatorJSON struct {
	Label string          `json:"label"`
	Value string          `json:"value"`
	Color json.RawMessage `json:"color"`
}

func parseIndicatorColor(raw json.RawMessage) (color.RGBA, error) {
	if len(raw) == 0 {
		return color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}, nil
	}
	var rgb [3]uint8
	if err := json.Unmarshal(raw, &rgb); err == nil {
		return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return color.RGBA{}, fmt.Errorf("unable to parse the color %q: %w", raw, err)
	}
	c, err := colorx.Parse(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("unable to parse the color %q: %w", raw, err)
	}
	return c, nil
}

func parseIndicators(data []byte) ([]Indicator, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var entries []indicatorJSON
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("unable to unmarshal the indicators JSON: %w", err)
		}
		items := make([]Indicator, 0, len(entries))
		for _, e := range entries {
			c, err := parseIndicatorColor(e.Color)
			if err != nil {
				return nil, err
			}
			items = append(items, Indicator{Label: e.Label, Value: e.Value, Color: c})
		}
		return items, nil
	}

	var items []Indicator
	scanner := bufio.NewScanner(strings.NewReader(trimmed))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		label, value, found := strings.Cut(line, ":")
		if !found {
			// a line without a colon is a bare value
			label, value = "", line
		}
		items = append(items, Indicator{
			Label: strings.TrimSpace(label),
			Value: strings.TrimSpace(value),
			Color: color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff},
		})
	}
	return items, nil
}

// LoadIndicators reads the indicators file and remembers the path for
// subsequent automatic reloads. On failure the previous items are kept.
func (l *IndicatorLayer) LoadIndicators(ctx context.Context, path string) error {
	logger.Debugf(ctx, "indicators: LoadIndicators(%q)", path)
	items, err := readIndicatorsFile(path)
	if err != nil {
		return err
	}
	l.locker.Do(ctx, func() {
		l.items = items
		l.filePath = path
		l.lastReload = clock.Get().Now()
	})
	return nil
}

func readIndicatorsFile(path string) ([]Indicator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to read the file '%s': %v", ErrAssetLoad, path, err)
	}
	items, err := parseIndicators(data)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", ErrAssetLoad, path, err)
	}
	return items, nil
}

// SetIndicators replaces the items directly and disables file reloads.
func (l *IndicatorLayer) SetIndicators(ctx context.Context, items []Indicator) {
	l.locker.Do(ctx, func() {
		l.items = items
		l.filePath = ""
	})
}

func (l *IndicatorLayer) Indicators(ctx context.Context) []Indicator {
	return xsync.DoR1(ctx, &l.locker, func() []Indicator {
		items := make([]Indicator, len(l.items))
		copy(items, l.items)
		return items
	})
}

// SetReloadInterval configures how often the indicators file is re-read
// during rendering. Zero disables automatic reloads.
func (l *IndicatorLayer) SetReloadInterval(ctx context.Context, interval time.Duration) {
	l.locker.Do(ctx, func() { l.reloadInterval = interval })
}

func (l *IndicatorLayer) SetPosition(ctx context.Context, pos Position) {
	l.locker.Do(ctx, func() { l.position = pos })
}

func (l *IndicatorLayer) SetFont(ctx context.Context, size int, fontColor color.RGBA) {
	l.locker.Do(ctx, func() {
		l.fontSize = size
		l.fontColor = fontColor
	})
}

func (l *IndicatorLayer) maybeReloadLocked(ctx context.Context, now time.Time) {
	if l.filePath == "" || l.reloadInterval <= 0 {
		return
	}
	if now.Sub(l.lastReload) <= l.reloadInterval {
		return
	}
	l.lastReload = now
	items, err := readIndicatorsFile(l.filePath)
	if err != nil {
		logger.Warnf(ctx, "unable to reload the indicators from '%s': %v", l.filePath, err)
		return
	}
	l.items = items
}

func (l *IndicatorLayer) Render(ctx context.Context, canvas *image.RGBA, req RenderRequest) error {
	if !l.Visible() {
		return nil
	}

	l.locker.Do(ctx, func() {
		l.maybeReloadLocked(ctx, req.Timestamp)
		if len(l.items) == 0 {
			return
		}

		r := textrender.Get()
		dotSize := l.fontSize / 2

		maxW, totalH := 0, 0
		lineHeights := make([]int, len(l.items))
		for idx, item := range l.items {
			w, h := r.Measure(indicatorText(item), l.fontSize, false)
			w += dotSize + l.padding
			if w > maxW {
				maxW = w
			}
			lineHeights[idx] = h
			totalH += h
			if idx > 0 {
				totalH += l.lineSpacing
			}
		}

		boxW := maxW + l.padding*2
		boxH := totalH + l.padding*2
		bx, by := boxOrigin(l.position, boxW, boxH, req.CanvasWidth, req.CanvasHeight)

		opacity := l.Opacity()
		blendColorRect(canvas, image.Rect(bx, by, bx+boxW, by+boxH), l.bgColor, opacity*0.8)

		y := by + l.padding
		for idx, item := range l.items {
			textColor := item.Color
			if textColor == (color.RGBA{}) {
				textColor = l.fontColor
			}
			dotY := y + (lineHeights[idx]-dotSize)/2
			blendColorRect(canvas, image.Rect(bx+l.padding, dotY, bx+l.padding+dotSize, dotY+dotSize), textColor, opacity)
			r.Draw(canvas, indicatorText(item), bx+l.padding+dotSize+l.padding, y, l.fontSize, textColor, false)
			y += lineHeights[idx] + l.lineSpacing
		}
	})
	return nil
}

func indicatorText(item Indicator) string {
	switch {
	case item.Label == "":
		return item.Value
	case item.Value == "":
		return item.Label
	}
	return item.Label + ": " + item.Value
}
