package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/billie-coop/segcanvas/internal/audiofile"
	"github.com/billie-coop/segcanvas/internal/canvas"
	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/config"
	"github.com/billie-coop/segcanvas/internal/logging"
	"github.com/billie-coop/segcanvas/internal/metrics"
	"github.com/billie-coop/segcanvas/internal/peaks"
	"github.com/billie-coop/segcanvas/internal/preview"
)

// shutdownTimeout bounds how long the peak worker may take to drain on exit.
const shutdownTimeout = 2 * time.Second

// missingDuration is the length given to files whose header cannot be read.
// The segment still appears, and its preview resolves as unavailable.
const missingDuration = 5 * time.Second

// sparkLevels map an absolute peak in [0, 1] to a glyph.
var sparkLevels = []rune(" ▁▂▃▄▅▆▇█")

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4fa3ff"))

func newRootCmd() *cobra.Command {
	var project string

	root := &cobra.Command{
		Use:   "segcanvas",
		Short: "Terminal timeline with background waveform previews",
		Long: `segcanvas shows audio and notation segments on a scrolling timeline.

Waveform peaks are computed by a single background worker. Narrow segments
are served first, edits cancel outdated work, and the canvas repaints only
the cells whose previews changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&project, "project", ".", "project directory holding .segcanvas/config.json")

	root.AddCommand(
		newViewCmd(&project),
		newPeaksCmd(&project),
		newConfigCmd(&project),
	)
	return root
}

// env is what every subcommand needs: the loaded config and a logger.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv(project string) (*env, error) {
	mgr := config.NewManager(project)
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	cfg := mgr.Get()

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

func (e *env) close() {
	_ = logging.Flush(e.logger)
}

func newViewCmd(project *string) *cobra.Command {
	return &cobra.Command{
		Use:   "view FILE.wav...",
		Short: "Open the canvas on a composition built from the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(*project)
			if err != nil {
				return err
			}
			defer e.close()
			return runView(cmd.Context(), e, args)
		},
	}
}

func runView(ctx context.Context, e *env, paths []string) error {
	cfg, logger := e.cfg, e.logger

	var pipeline *metrics.Pipeline
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		pipeline = metrics.NewPipeline(reg)
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	lib := audiofile.NewLibrary()
	mgr := peaks.NewManager(lib,
		peaks.WithLogger(logger),
		peaks.WithMetrics(pipeline),
		peaks.WithCompletionBuffer(cfg.CompletionBuffer),
	)
	defer shutdownPeaks(mgr, logger)

	comp := demoComposition(lib, paths, logger)

	damage := canvas.NewDamage()
	cache := preview.NewCache(comp, mgr,
		preview.WithLayout(preview.Layout{PixelsPerSecond: cfg.PixelsPerSecond, TrackHeight: cfg.TrackHeight}),
		preview.WithCompletions(mgr.Completions()),
		preview.WithRedrawSink(damage),
		preview.WithMinima(cfg.WantMinima),
		preview.WithCacheLogger(logger),
		preview.WithCacheMetrics(pipeline),
	)
	// Nothing is generated until the first window size sets a viewport.
	comp.AddObserver(cache)

	model := canvas.New(comp, cache, damage, mgr,
		canvas.WithRedrawInterval(cfg.RedrawInterval),
		canvas.WithCellWidth(cfg.CellWidth),
		canvas.WithLogger(logger),
		canvas.WithMetrics(pipeline),
	)

	logger.Info("canvas starting", zap.Int("segments", comp.Len()), zap.Int("tracks", comp.Tracks()))
	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("canvas: %w", err)
	}
	return nil
}

// shutdownPeaks drains the worker. Nothing reads completions once the caller
// is done, so they are discarded here to keep the worker from blocking.
func shutdownPeaks(mgr *peaks.Manager, logger *zap.Logger) {
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-mgr.Completions():
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := mgr.Shutdown(ctx); err != nil {
		logger.Warn("peak worker did not drain", zap.Error(err))
	}
}

// demoComposition puts each file on its own track and an arpeggio on the
// track below them.
func demoComposition(lib *audiofile.Library, paths []string, logger *zap.Logger) *composition.Composition {
	comp := composition.New()

	for i, path := range paths {
		id := lib.Register(path)
		dur := missingDuration
		if info, err := lib.Info(id); err != nil {
			logger.Warn("cannot read audio header", zap.String("path", path), zap.Error(err))
		} else if info.Duration > 0 {
			dur = info.Duration
		}
		start := time.Duration(i) * time.Second
		comp.Add(composition.Segment{
			Track:      i,
			Kind:       composition.KindAudio,
			Start:      start,
			End:        start + dur,
			Color:      "#4fa3ff",
			Label:      filepath.Base(path),
			AudioFile:  id,
			AudioStart: 0,
			AudioEnd:   dur,
		})
	}

	const step = 500 * time.Millisecond
	pitches := []int{60, 64, 67, 72, 67, 64, 60, 55}
	notes := make([]composition.Note, len(pitches))
	for i, p := range pitches {
		notes[i] = composition.Note{Pitch: p, Start: time.Duration(i) * step, Duration: step * 3 / 4}
	}
	comp.Add(composition.Segment{
		Track: len(paths),
		Kind:  composition.KindNotation,
		Start: time.Second,
		End:   time.Second + time.Duration(len(pitches))*step,
		Color: "#33cc66",
		Label: "arpeggio",
		Notes: notes,
	})
	return comp
}

func newPeaksCmd(project *string) *cobra.Command {
	var width int
	var minima bool

	cmd := &cobra.Command{
		Use:   "peaks FILE.wav",
		Short: "Compute a file's peaks on the background worker and print them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if width < 1 {
				return fmt.Errorf("--width must be at least 1, got %d", width)
			}
			e, err := loadEnv(*project)
			if err != nil {
				return err
			}
			defer e.close()

			lines, err := runPeaks(cmd.Context(), e.logger, args[0], width, minima)
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", 64, "number of columns to reduce the file to")
	cmd.Flags().BoolVar(&minima, "minima", false, "request a minimum next to every maximum")
	return cmd
}

// runPeaks sends one request through a fresh Manager and renders the result,
// one labelled line per channel.
func runPeaks(ctx context.Context, logger *zap.Logger, path string, width int, minima bool) ([]string, error) {
	lib := audiofile.NewLibrary()
	id := lib.Register(path)
	info, err := lib.Info(id)
	if err != nil {
		return nil, err
	}

	mgr := peaks.NewManager(lib, peaks.WithLogger(logger))
	defer shutdownPeaks(mgr, logger)

	token, err := mgr.Submit(peaks.Request{
		Segment:    1,
		File:       id,
		Start:      0,
		End:        info.Duration,
		Width:      width,
		WantMinima: minima,
	})
	if err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			mgr.Cancel(token)
			return nil, ctx.Err()
		case done := <-mgr.Completions():
			if done.Token != token {
				continue
			}
			res, ok := mgr.TakeResult(token)
			if !ok || res.Channels == 0 {
				return nil, fmt.Errorf("could not decode %s", path)
			}
			return sparklines(res, width, minima), nil
		}
	}
}

// sparklines draws each channel as one row of level glyphs.
func sparklines(res *peaks.Result, width int, minima bool) []string {
	stride := res.Channels
	if minima {
		stride *= 2
	}

	lines := make([]string, 0, res.Channels)
	for c := 0; c < res.Channels; c++ {
		var b strings.Builder
		for x := 0; x < width; x++ {
			i := x*stride + c
			if minima {
				i = x*stride + 2*c
			}
			if i >= len(res.Values) {
				b.WriteRune(sparkLevels[0])
				continue
			}
			peak := math.Abs(float64(res.Values[i]))
			if minima {
				peak = math.Max(peak, math.Abs(float64(res.Values[i+1])))
			}
			b.WriteRune(sparkGlyph(peak))
		}
		lines = append(lines, labelStyle.Render(fmt.Sprintf("ch%d", c+1))+" "+b.String())
	}
	return lines
}

func sparkGlyph(peak float64) rune {
	if peak <= 0 {
		return sparkLevels[0]
	}
	top := len(sparkLevels) - 1
	n := int(math.Ceil(math.Min(peak, 1) * float64(top)))
	return sparkLevels[n]
}

func newConfigCmd(project *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change project settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every setting",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				mgr, err := loadConfig(*project)
				if err != nil {
					return err
				}
				for _, k := range config.Keys() {
					v, _ := mgr.Value(k)
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", k, v)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr, err := loadConfig(*project)
				if err != nil {
					return err
				}
				v, err := mgr.Value(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Change one setting and save it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				mgr, err := loadConfig(*project)
				if err != nil {
					return err
				}
				return mgr.Set(args[0], args[1])
			},
		},
	)
	return cmd
}

func loadConfig(project string) (*config.Manager, error) {
	mgr := config.NewManager(project)
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	return mgr, nil
}
