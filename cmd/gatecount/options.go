package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ayusman/gatecount/internal/config"
)

// Options holds the command line flags.
type Options struct {
	ConfigFile  string
	Source      string
	Camera      int
	FPS         int
	Database    string
	HTTP        string
	StaticDir   string
	PluginsDir  string
	HookTimeout time.Duration
	Output      string
	Preview     bool
	Tray        bool
	RunID       string
	LogLevel    string
	DumpConfig  bool
}

// NewOptions creates Options with default values.
func NewOptions() *Options {
	return &Options{
		HookTimeout: 5 * time.Second,
		LogLevel:    "info",
	}
}

// Flags returns the flag set of the command.
func (o *Options) Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("gatecount", pflag.ContinueOnError)

	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "JSON configuration file. Without one, four default regions are derived from the frame size.")
	fs.StringVarP(&o.Source, "source", "s", o.Source, "Video file to count. Overrides the configured source.")
	fs.IntVar(&o.Camera, "camera", o.Camera, "Camera device used when no video file is given.")
	fs.IntVar(&o.FPS, "fps", o.FPS, "Frames processed per second. 0 reads as fast as frames arrive.")
	fs.StringVar(&o.Database, "db", o.Database, "SQLite database storing runs, crossings and hooks.")
	fs.StringVar(&o.HTTP, "http", o.HTTP, "Address of the HTTP API, e.g. :8080. Empty disables it.")
	fs.StringVar(&o.StaticDir, "static", o.StaticDir, "Directory of static files served at / by the HTTP API.")
	fs.StringVar(&o.PluginsDir, "plugins", o.PluginsDir, "Directory of hook plugins.")
	fs.DurationVar(&o.HookTimeout, "hook-timeout", o.HookTimeout, "Time a hook plugin may run per crossing.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Record the annotated video to this file.")
	fs.BoolVar(&o.Preview, "preview", o.Preview, "Show a preview window per region. ESC stops the run.")
	fs.BoolVar(&o.Tray, "tray", o.Tray, "Show live counts in the system tray.")
	fs.StringVar(&o.RunID, "run-id", o.RunID, "Id of the stored run. Defaults to a random UUID.")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn or error.")
	fs.BoolVar(&o.DumpConfig, "dump-config", o.DumpConfig, "Print the effective configuration as JSON and exit.")

	return fs
}

// Validate checks flag values that do not depend on the configuration file.
func (o *Options) Validate() error {
	if _, err := logrus.ParseLevel(o.LogLevel); err != nil {
		return err
	}
	if o.FPS < 0 {
		return fmt.Errorf("--fps must not be negative, got %d", o.FPS)
	}
	if o.HookTimeout <= 0 {
		return fmt.Errorf("--hook-timeout must be positive, got %v", o.HookTimeout)
	}
	return nil
}

// Config loads the configuration file, if any, and applies the flags that
// were set explicitly on top of it.
func (o *Options) Config(fs *pflag.FlagSet) (*config.Config, error) {
	cfg := &config.Config{}
	if o.ConfigFile != "" {
		loaded, err := config.Load(o.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if fs.Changed("source") {
		cfg.Source = o.Source
	}
	if fs.Changed("camera") {
		cfg.Camera = o.Camera
		if !fs.Changed("source") {
			cfg.Source = ""
		}
	}
	if fs.Changed("fps") {
		cfg.FPS = o.FPS
	}
	if fs.Changed("db") {
		cfg.Database = o.Database
	}
	if fs.Changed("http") {
		cfg.HTTP = o.HTTP
	}
	if fs.Changed("plugins") {
		cfg.PluginsDir = o.PluginsDir
	}
	if fs.Changed("preview") {
		cfg.Preview = o.Preview
	}
	if fs.Changed("tray") {
		cfg.Tray = o.Tray
	}

	return cfg, nil
}
