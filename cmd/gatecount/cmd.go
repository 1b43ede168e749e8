package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/gatecount/internal/app"
	"github.com/ayusman/gatecount/internal/capture"
	"github.com/ayusman/gatecount/internal/config"
	"github.com/ayusman/gatecount/internal/plugin"
	"github.com/ayusman/gatecount/internal/region"
	"github.com/ayusman/gatecount/internal/render"
	"github.com/ayusman/gatecount/internal/server"
	"github.com/ayusman/gatecount/internal/store"
	"github.com/ayusman/gatecount/internal/tray"
)

var (
	_ app.Sink           = (*store.Recorder)(nil)
	_ app.Sink           = (*plugin.Dispatcher)(nil)
	_ app.Sink           = (*server.Hub)(nil)
	_ app.Sink           = (*tray.Tray)(nil)
	_ app.Renderer       = (*render.Overlay)(nil)
	_ server.FrameSource = (*render.Overlay)(nil)
)

// NewCommand creates the gatecount command.
func NewCommand() *cobra.Command {
	o := NewOptions()

	cmd := &cobra.Command{
		Use:   "gatecount",
		Short: "Count objects crossing gate lines in a video",
		Long: `gatecount detects moving objects in fixed regions of a video, tracks them
from frame to frame and counts how many cross each region's gate line in
either direction. The final count of every region is printed as
"index (enter, exit)".`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Validate(); err != nil {
				return err
			}
			level, _ := logrus.ParseLevel(o.LogLevel)
			logrus.SetLevel(level)
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.Config(cmd.Flags())
			if err != nil {
				return err
			}
			return Run(cmd.Context(), o, cfg)
		},
	}

	cmd.Flags().AddFlagSet(o.Flags())

	return cmd
}

// Run counts one video source with cfg.
func Run(ctx context.Context, o *Options, cfg *config.Config) error {
	src, name := openSource(cfg)
	if err := src.Open(); err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer src.Close()

	size := src.Size()
	if len(cfg.Regions) == 0 {
		cfg.Regions = config.Default(size).Regions
		logrus.WithField("frame", fmt.Sprintf("%dx%d", size.X, size.Y)).Info("using default regions")
	}
	if err := cfg.Validate(size); err != nil {
		return err
	}

	if o.DumpConfig {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	regions, err := cfg.Build()
	if err != nil {
		return err
	}
	pipeline := region.NewPipeline(regions...)
	defer pipeline.Close()

	// Hooks keep the parent context so queued ones finish after the run.
	hookCtx := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sinks := []app.Sink{app.NewLogSink(100)}

	var st *store.Store
	if cfg.Database != "" {
		st, err = store.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer st.Close()
		sinks = append(sinks, store.NewRecorder(st))
	}

	manager := plugin.NewManager(cfg.PluginsDir)
	var plugins *plugin.Manager
	if cfg.PluginsDir != "" {
		if err := manager.Discover(); err != nil {
			logrus.WithError(err).Warn("failed to discover plugins")
		}
		plugins = manager
	}
	if st != nil {
		dispatcher := plugin.NewDispatcher(hookCtx, st.Hooks(), manager, plugin.NewExecutor(o.HookTimeout), plugin.DispatcherConfig{})
		defer dispatcher.Close()
		sinks = append(sinks, dispatcher)
	}

	var overlay *render.Overlay
	if cfg.Preview || o.Output != "" || cfg.HTTP != "" {
		overlay = render.NewOverlay(render.Options{
			Preview: cfg.Preview,
			Output:  o.Output,
			FPS:     float64(max(cfg.FPS, src.FPS())),
		})
		defer overlay.Close()
	}

	var hub *server.Hub
	if cfg.HTTP != "" {
		hub = server.NewHub()
		sinks = append(sinks, hub)
	}

	var tr *tray.Tray
	if cfg.Tray {
		names := make([]string, len(regions))
		for i, r := range regions {
			names[i] = r.Name()
		}
		tr = tray.New(names)
		sinks = append(sinks, tr)
	}

	appConfig := app.Config{
		Source:     src,
		SourceName: name,
		Pipeline:   pipeline,
		Sinks:      sinks,
		FPS:        cfg.FPS,
		RunID:      o.RunID,
	}
	if overlay != nil {
		appConfig.Renderer = overlay
	}
	a, err := app.New(appConfig)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.HTTP != "" {
		srv := server.New(server.Config{
			StaticDir: o.StaticDir,
			Store:     st,
			Plugins:   plugins,
			Hub:       hub,
			Frames:    overlay,
		})
		g.Go(func() error {
			logrus.WithField("addr", cfg.HTTP).Info("serving HTTP API")
			return srv.ListenAndServe(gctx, cfg.HTTP)
		})
	}

	var result *app.Result
	g.Go(func() error {
		// The HTTP server stops with the run.
		defer cancel()
		if tr != nil {
			defer tr.Quit()
		}

		var err error
		result, err = a.Run(gctx)
		return err
	})

	if tr != nil {
		tr.OnPause(a.SetPaused)
		tr.OnQuit(cancel)
		if cfg.HTTP != "" {
			tr.OnOpen(func() { openBrowser(dashboardURL(cfg.HTTP)) })
		}
		tr.Run()
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range result.Reports {
		fmt.Println(r.String())
	}
	return nil
}

func openSource(cfg *config.Config) (capture.Source, string) {
	if cfg.Source != "" {
		return capture.NewFileSource(cfg.Source), cfg.Source
	}
	return capture.NewCamera(cfg.Camera), fmt.Sprintf("camera:%d", cfg.Camera)
}

func dashboardURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Warn("failed to open browser")
	}
}
