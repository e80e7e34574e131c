package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/vcamstudio/pkg/clock"
	"github.com/xaionaro-go/vcamstudio/pkg/textrender"
	"github.com/xaionaro-go/vcamstudio/pkg/xsync"
)

// flashThreshold is the remaining time below which the time string starts
// flashing in the alternate color, toggling every half second.
const flashThreshold = 30 * time.Second

// CountdownLayer draws a countdown timer in a colored box at one of the
// named canvas positions.
//
// State machine: Idle (not started) -> Running -> Paused -> Running ... ->
// Finished (remaining reached zero). Reset returns to Idle from any state.
type CountdownLayer struct {
	layerBase

	locker        xsync.Mutex
	duration      time.Duration
	startedAt     time.Time // zero means "not started"
	paused        bool
	pauseRemain   time.Duration
	finished      bool
	fontSize      int
	fontColor     color.RGBA
	flashColor    color.RGBA
	bgColor       color.RGBA
	position      Position
	padding       int
	showLabel     bool
	labelText     string
	onFinished    func(ctx context.Context)
	finishedFired bool
}

func NewCountdownLayer(zOrder int) *CountdownLayer {
	l := &CountdownLayer{
		duration:   5 * time.Minute,
		fontSize:   48,
		fontColor:  color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		flashColor: color.RGBA{R: 0xff, G: 0x64, B: 0x64, A: 0xff},
		bgColor:    color.RGBA{R: 0xc8, G: 0x1e, B: 0x1e, A: 0xff},
		position:   PositionTopRight,
		padding:    15,
		showLabel:  true,
		labelText:  "TIMER",
	}
	l.layerBase.init("countdown", zOrder)
	return l
}

// Start begins (or restarts) the countdown from the configured duration.
func (l *CountdownLayer) Start(ctx context.Context) {
	logger.Debugf(ctx, "countdown: Start")
	l.locker.Do(ctx, func() {
		l.startedAt = clock.Get().Now()
		l.paused = false
		l.finished = false
		l.finishedFired = false
	})
}

// Pause freezes the remaining time. No-op unless running.
func (l *CountdownLayer) Pause(ctx context.Context) {
	logger.Debugf(ctx, "countdown: Pause")
	l.locker.Do(ctx, func() {
		if l.startedAt.IsZero() || l.paused {
			return
		}
		elapsed := clock.Get().Now().Sub(l.startedAt)
		l.pauseRemain = max(0, l.duration-elapsed)
		l.paused = true
	})
}

// Resume continues a paused countdown: the remaining time at pause becomes
// the new duration and a fresh start timestamp is taken.
func (l *CountdownLayer) Resume(ctx context.Context) {
	logger.Debugf(ctx, "countdown: Resume")
	l.locker.Do(ctx, func() {
		if !l.paused {
			return
		}
		l.duration = l.pauseRemain
		l.startedAt = clock.Get().Now()
		l.paused = false
	})
}

// Reset returns the countdown to Idle; a non-nil duration also replaces
// the configured duration.
func (l *CountdownLayer) Reset(ctx context.Context, duration *time.Duration) {
	logger.Debugf(ctx, "countdown: Reset(%v)", duration)
	l.locker.Do(ctx, func() {
		if duration != nil {
			l.duration = *duration
		}
		l.startedAt = time.Time{}
		l.paused = false
		l.finished = false
		l.finishedFired = false
	})
}

func (l *CountdownLayer) SetDuration(ctx context.Context, d time.Duration) {
	l.locker.Do(ctx, func() { l.duration = d })
}

func (l *CountdownLayer) SetPosition(ctx context.Context, pos Position) {
	l.locker.Do(ctx, func() { l.position = pos })
}

func (l *CountdownLayer) SetLabel(ctx context.Context, show bool, text string) {
	l.locker.Do(ctx, func() {
		l.showLabel = show
		if text != "" {
			l.labelText = text
		}
	})
}

func (l *CountdownLayer) SetFont(ctx context.Context, size int, fontColor, bgColor color.RGBA) {
	l.locker.Do(ctx, func() {
		l.fontSize = size
		l.fontColor = fontColor
		l.bgColor = bgColor
	})
}

// SetOnFinished registers a callback fired once when the remaining time
// first reaches zero. It is invoked from whichever goroutine observes the
// transition (normally the pacing loop) and must not block.
func (l *CountdownLayer) SetOnFinished(ctx context.Context, fn func(ctx context.Context)) {
	l.locker.Do(ctx, func() { l.onFinished = fn })
}

// Remaining reports the time left. Never negative.
func (l *CountdownLayer) Remaining(ctx context.Context) time.Duration {
	var remaining time.Duration
	var fire func(ctx context.Context)
	l.locker.Do(ctx, func() {
		remaining, fire = l.remainingLocked()
	})
	if fire != nil {
		fire(ctx)
	}
	return remaining
}

// remainingLocked computes the time left and, on the first transition to
// zero, returns the onFinished callback. The callback must be invoked
// after the locker is released: it may call back into the layer.
func (l *CountdownLayer) remainingLocked() (time.Duration, func(ctx context.Context)) {
	if l.startedAt.IsZero() {
		return l.duration, nil
	}
	if l.paused {
		return l.pauseRemain, nil
	}
	remaining := max(0, l.duration-clock.Get().Now().Sub(l.startedAt))
	if remaining == 0 {
		l.finished = true
		if l.onFinished != nil && !l.finishedFired {
			l.finishedFired = true
			return 0, l.onFinished
		}
	}
	return remaining, nil
}

// Finished reports whether the countdown has reached zero since the last
// Start/Reset. It is latched: it stays true while remaining stays zero.
func (l *CountdownLayer) Finished(ctx context.Context) bool {
	return xsync.DoR1(ctx, &l.locker, func() bool { return l.finished })
}

func formatRemaining(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds >= 3600 {
		return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (l *CountdownLayer) Render(ctx context.Context, canvas *image.RGBA, req RenderRequest) error {
	if !l.Visible() {
		return nil
	}

	var fire func(ctx context.Context)
	l.locker.Do(ctx, func() {
		remaining, finishedFn := l.remainingLocked()
		fire = finishedFn
		timeStr := formatRemaining(remaining)

		r := textrender.Get()
		timeW, timeH := r.Measure(timeStr, l.fontSize, true)

		labelFontSize := l.fontSize / 2
		labelW, labelH := 0, 0
		if l.showLabel {
			labelW, labelH = r.Measure(l.labelText, labelFontSize, false)
			labelH += 5
		}

		boxW := max(timeW, labelW) + l.padding*2
		boxH := timeH + labelH + l.padding*2
		bx, by := boxOrigin(l.position, boxW, boxH, req.CanvasWidth, req.CanvasHeight)

		blendColorRect(canvas, image.Rect(bx, by, bx+boxW, by+boxH), l.bgColor, l.Opacity())

		textY := by + l.padding
		if l.showLabel {
			r.Draw(canvas, l.labelText, bx+(boxW-labelW)/2, textY, labelFontSize, l.fontColor, false)
			textY += labelH
		}

		timeColor := l.fontColor
		if remaining <= flashThreshold && int(remaining.Seconds()*2)%2 == 0 {
			timeColor = l.flashColor
		}
		r.Draw(canvas, timeStr, bx+(boxW-timeW)/2, textY, l.fontSize, timeColor, true)
	})
	if fire != nil {
		fire(ctx)
	}
	return nil
}
