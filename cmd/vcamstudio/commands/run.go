package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/cobra"
	"github.com/xaionaro-go/eventbus"

	"github.com/xaionaro-go/vcamstudio/pkg/capture"
	"github.com/xaionaro-go/vcamstudio/pkg/compositor"
	"github.com/xaionaro-go/vcamstudio/pkg/config"
	"github.com/xaionaro-go/vcamstudio/pkg/pacer"
	"github.com/xaionaro-go/vcamstudio/pkg/sink"
)

func assertNoError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	logger.Fatal(ctx, err)
}

func run(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	cfgPath, err := cmd.Flags().GetString("config")
	assertNoError(ctx, err)

	cfg, err := config.ReadFromPath(cfgPath)
	assertNoError(ctx, err)

	comp := buildCompositor(ctx, cfg)

	src := capture.NewSource(
		capture.OpenCVBackend{},
		cfg.Camera.DeviceID,
		cfg.Camera.Width,
		cfg.Camera.Height,
		cfg.Camera.FPS,
	)
	if err := src.Start(ctx); err != nil {
		// keep going without a camera: the stack still renders the
		// overlay layers on the background
		logger.Errorf(ctx, "unable to start the capture source: %v", err)
	}

	var sinks []sink.Sink
	if cfg.Preview.Enable {
		sinks = append(sinks, sink.NewMJPEGServer(cfg.Preview.ListenAddr))
	}
	if cfg.RawOutput.Enable {
		format := sink.PixelFormatRGBA
		if cfg.RawOutput.PixelFormat == "rgb" {
			format = sink.PixelFormatRGB
		}
		raw := sink.NewWriterSink(os.Stdout, format)
		raw.SetOutputSize(cfg.RawOutput.Width, cfg.RawOutput.Height)
		sinks = append(sinks, raw)
	}
	for _, s := range sinks {
		if err := s.Start(ctx); err != nil {
			logger.Errorf(ctx, "unable to start a sink: %v", err)
		}
	}

	loop := &pacer.Loop{
		Source:    src,
		Composer:  comp,
		Sinks:     sinks,
		TargetFPS: cfg.Canvas.FPS,
		EventBus:  eventbus.New(),
		OnFPS: func(ctx context.Context, fps float64) {
			logger.Debugf(ctx, "output FPS: %.1f", fps)
		},
		OnError: func(ctx context.Context, err error) {
			logger.Warnf(ctx, "pipeline error: %v", err)
		},
	}
	assertNoError(ctx, loop.Start(ctx))

	sigCtx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()
	<-sigCtx.Done()
	logger.Infof(ctx, "shutting down")

	if err := loop.Stop(ctx); err != nil {
		logger.Errorf(ctx, "unable to stop the pacing loop: %v", err)
	}
	for _, s := range sinks {
		if err := s.Stop(ctx); err != nil {
			logger.Errorf(ctx, "unable to stop a sink: %v", err)
		}
	}
	if err := src.Stop(ctx); err != nil {
		logger.Errorf(ctx, "unable to stop the capture source: %v", err)
	}
}

func buildCompositor(ctx context.Context, cfg config.Config) *compositor.Compositor {
	comp := compositor.New(cfg.Canvas.Width, cfg.Canvas.Height)
	comp.SetBackgroundColor(ctx, cfg.Canvas.BackgroundColor.RGBA())

	comp.Webcam().SetFlipHorizontal(ctx, cfg.Camera.FlipHorizontal)

	if cfg.Overlay.Enable && cfg.Overlay.ImagePath != "" {
		if err := comp.Overlay().LoadImage(ctx, cfg.Overlay.ImagePath); err != nil {
			logger.Errorf(ctx, "unable to load the overlay image: %v", err)
		}
		comp.Overlay().SetOpacity(cfg.Overlay.Opacity)
	}

	ticker := comp.Ticker()
	ticker.SetVisible(cfg.Ticker.Enable)
	if cfg.Ticker.Enable {
		barPos := compositor.PositionBottomLeft
		if cfg.Ticker.Position == "top" {
			barPos = compositor.PositionTopLeft
		}
		ticker.SetBar(ctx, barPos, cfg.Ticker.BarHeight, cfg.Ticker.Opacity)
		ticker.SetFont(ctx, cfg.Ticker.FontSize, cfg.Ticker.FontColor.RGBA(), cfg.Ticker.BarColor.RGBA())
		ticker.SetScrollSpeed(ctx, cfg.Ticker.Speed)
		switch {
		case cfg.Ticker.TextFile != "":
			if err := ticker.LoadTextFromFile(ctx, cfg.Ticker.TextFile); err != nil {
				logger.Errorf(ctx, "unable to load the ticker text: %v", err)
			}
		case cfg.Ticker.Text != "":
			ticker.SetText(ctx, cfg.Ticker.Text)
		}
	}

	countdown := comp.Countdown()
	countdown.SetDuration(ctx, cfg.Countdown.Duration)
	countdown.SetPosition(ctx, compositor.Position(cfg.Countdown.Position))
	if cfg.Countdown.Label != "" {
		countdown.SetLabel(ctx, true, cfg.Countdown.Label)
	}

	indicators := comp.Indicators()
	indicators.SetPosition(ctx, compositor.Position(cfg.Indicators.Position))
	indicators.SetReloadInterval(ctx, cfg.Indicators.ReloadInterval)
	if cfg.Indicators.File != "" {
		if err := indicators.LoadIndicators(ctx, cfg.Indicators.File); err != nil {
			logger.Errorf(ctx, "unable to load the indicators: %v", err)
		} else {
			indicators.SetVisible(true)
		}
	}

	return comp
}
