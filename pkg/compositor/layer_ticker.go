package compositor

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/vcamstudio/pkg/textrender"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

// Separator is the glyph sequence inserted between ticker items, and
// between the two copies of the text that make the wrap-around seamless.
const Separator = "     ●     "

// ScrollMode selects how the ticker advances its scroll offset.
type ScrollMode string

const (
	// ScrollModePerFrame advances the offset by ScrollSpeed pixels on
	// every visible render, which couples the scroll rate to the achieved
	// frame rate. This matches the classic ticker behavior.
	ScrollModePerFrame = ScrollMode("per-frame")

	// ScrollModeWallClock advances the offset by ScrollSpeed pixels per
	// second of wall-clock time, independent of the frame rate.
	ScrollModeWallClock = ScrollMode("wall-clock")
)

// TickerLayer draws a semi-transparent bar with horizontally scrolling text
// (news-ticker style) at the top or bottom of the canvas.
type TickerLayer struct {
	layerBase

	locker       xsync.Mutex
	text         string
	textFile     string
	fontSize     int
	fontColor    color.RGBA
	bgColor      color.RGBA
	barHeight    int
	scrollSpeed  float64
	scrollMode   ScrollMode
	barPosition  Position // top or bottom
	barOpacity   float64
	scrollOffset float64
	lastRenderAt time.Time
}

func NewTickerLayer(zOrder int) *TickerLayer {
	l := &TickerLayer{
		fontSize:    28,
		fontColor:   color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		bgColor:     color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff},
		barHeight:   50,
		scrollSpeed: 2,
		scrollMode:  ScrollModePerFrame,
		barPosition: PositionBottomLeft,
		barOpacity:  0.85,
	}
	l.layerBase.init("ticker", zOrder)
	return l
}

// SetText replaces the displayed text. Items should already be joined with
// Separator; the scroll offset is reset so the new text starts off-screen.
func (l *TickerLayer) SetText(ctx context.Context, text string) {
	l.locker.Do(ctx, func() {
		l.text = text
		l.scrollOffset = 0
	})
}

func (l *TickerLayer) Text(ctx context.Context) string {
	return xsync.DoR1(ctx, &l.locker, func() string { return l.text })
}

// LoadTextFromFile reads the non-empty lines of a UTF-8 text file and joins
// them with Separator.
func (l *TickerLayer) LoadTextFromFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: unable to open '%s': %v", ErrAssetLoad, path, err)
	}
	defer f.Close()

	var items []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			items = append(items, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: unable to read '%s': %v", ErrAssetLoad, path, err)
	}

	l.locker.Do(ctx, func() {
		l.text = strings.Join(items, Separator)
		l.textFile = path
		l.scrollOffset = 0
	})
	logger.Infof(ctx, "loaded %d ticker items from '%s'", len(items), path)
	return nil
}

// ReloadText re-reads the last loaded file, if any.
func (l *TickerLayer) ReloadText(ctx context.Context) error {
	path := xsync.DoR1(ctx, &l.locker, func() string { return l.textFile })
	if path == "" {
		return fmt.Errorf("%w: no ticker file was loaded", ErrAssetLoad)
	}
	return l.LoadTextFromFile(ctx, path)
}

func (l *TickerLayer) SetScrollSpeed(ctx context.Context, speed float64) {
	l.locker.Do(ctx, func() { l.scrollSpeed = speed })
}

func (l *TickerLayer) SetScrollMode(ctx context.Context, mode ScrollMode) {
	l.locker.Do(ctx, func() { l.scrollMode = mode })
}

func (l *TickerLayer) SetBar(ctx context.Context, position Position, height int, opacity float64) {
	l.locker.Do(ctx, func() {
		l.barPosition = position
		l.barHeight = height
		l.barOpacity = opacity
	})
}

func (l *TickerLayer) SetFont(ctx context.Context, size int, fontColor, bgColor color.RGBA) {
	l.locker.Do(ctx, func() {
		l.fontSize = size
		l.fontColor = fontColor
		l.bgColor = bgColor
	})
}

// ScrollOffset reports the accumulated scroll offset; it only grows (the
// wrap-around is applied at render time via modulo, the offset itself is
// reset only when the text is replaced).
func (l *TickerLayer) ScrollOffset(ctx context.Context) float64 {
	return xsync.DoR1(ctx, &l.locker, func() float64 { return l.scrollOffset })
}

func (l *TickerLayer) Render(ctx context.Context, canvas *image.RGBA, req RenderRequest) error {
	if !l.Visible() {
		// An invisible ticker must not scroll.
		return nil
	}

	l.locker.Do(ctx, func() {
		defer func() {
			l.lastRenderAt = req.Timestamp
		}()

		if l.text == "" {
			return
		}

		barY := 0
		if l.barPosition != PositionTopLeft && l.barPosition != PositionTopCenter && l.barPosition != PositionTopRight {
			barY = req.CanvasHeight - l.barHeight
		}
		blendColorRect(
			canvas,
			image.Rect(0, barY, req.CanvasWidth, barY+l.barHeight),
			l.bgColor,
			l.barOpacity,
		)

		r := textrender.Get()
		singleText := l.text + Separator
		fullText := l.text + Separator + l.text
		singleW, _ := r.Measure(singleText, l.fontSize, false)

		textY := barY + (l.barHeight-l.fontSize)/2
		xPos := req.CanvasWidth - int(l.scrollOffset)%(singleW+req.CanvasWidth)
		r.Draw(canvas, fullText, xPos, textY, l.fontSize, l.fontColor, false)

		switch l.scrollMode {
		case ScrollModeWallClock:
			if !l.lastRenderAt.IsZero() {
				l.scrollOffset += l.scrollSpeed * req.Timestamp.Sub(l.lastRenderAt).Seconds()
			}
		default:
			l.scrollOffset += l.scrollSpeed
		}
	})
	return nil
}
