// Package main provides the scdl command line entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/handiism/soundcloud-downloader/internal/config"
	"github.com/handiism/soundcloud-downloader/internal/download"
)

// exitInterrupted is the exit status after Ctrl-C, as with shells.
const exitInterrupted = 130

var errSomeFailed = errors.New("some tracks failed")

type app struct {
	v        *viper.Viper
	cfgFile  string
	settings *config.Settings
	logger   *zap.Logger

	timeout time.Duration
	verbose bool
}

func main() {
	a := &app{v: config.NewViper()}
	err := a.rootCmd().Execute()
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err == nil {
		return
	}

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nDownload cancelled.")
		os.Exit(exitInterrupted)
	}
	if !errors.Is(err, errSomeFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scdl <url>...",
		Short: "Save SoundCloud tracks as tagged MP3 files",
		Long: `scdl resolves SoundCloud track pages, downloads their audio (progressive
or HLS), tags it with ID3 metadata and cover art and saves it to the output
directory. For interactive mode, use scdl-tui.`,
		Args:              cobra.MinimumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
		RunE:              a.runDownload,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", config.DefaultPath(), "settings file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.StringP("output", "o", "", "output directory")
	flags.String("format", "", `file name format, e.g. "{artist} - {title}"`)
	flags.Bool("lowercase", false, "lowercase file names")
	flags.String("client-id", "", "SoundCloud client_id (skips discovery)")
	flags.DurationVar(&a.timeout, "timeout", 0, "give up after this long (0 for no limit)")

	local := cmd.Flags()
	local.Bool("playlist", false, "write a playlist of the saved tracks")
	local.String("playlist-format", "", "playlist format (m3u, pls, wpl, zpl)")
	local.Int("concurrency", 0, "tracks downloaded at once")
	local.BoolVarP(&a.verbose, "verbose", "v", false, "show every pipeline step")

	a.bind(cmd, map[string]string{
		"log_level":                "log-level",
		"output_dir":               "output",
		"format":                   "format",
		"lowercase":                "lowercase",
		"client_id":                "client-id",
		"create_playlist":          "playlist",
		"playlist_format":          "playlist-format",
		"max_concurrent_downloads": "concurrency",
	})

	cmd.AddCommand(a.serveCmd(), a.configCmd())
	return cmd
}

// bind maps settings keys to flags of cmd, so a flag that was set
// overrides the file and the environment.
func (a *app) bind(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if err := a.v.BindPFlag(key, flag); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func (a *app) load(_ *cobra.Command, _ []string) error {
	settings, err := config.Load(a.v, a.cfgFile)
	a.settings = settings
	a.logger = buildLogger(settings.LogLevel)
	if err != nil {
		a.logger.Warn("Using default settings", zap.String("path", a.cfgFile), zap.Error(err))
	}
	return nil
}

func (a *app) context() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	if a.timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func (a *app) runDownload(cmd *cobra.Command, args []string) error {
	ctx, cancel := a.context()
	defer cancel()

	out := cmd.OutOrStdout()
	printer := newProgressPrinter(out, a.verbose)
	manager := download.NewManager(a.settings, a.logger, nil, printer.print)

	fmt.Fprintln(out, color.New(color.FgHiRed, color.Bold).Sprint("☁ SoundCloud Downloader"))
	fmt.Fprintln(out, strings.Repeat("━", 40))

	results, err := manager.DownloadAll(ctx, args)

	saved, failed := manager.Stats()
	fmt.Fprintln(out, strings.Repeat("━", 40))
	fmt.Fprintf(out, "✨ Complete! Saved %d/%d tracks (%.2f MB) to %s\n",
		saved, len(results), float64(manager.ReceivedBytes())/1024/1024, a.settings.OutputDir)

	switch {
	case err == nil:
		return nil
	case errors.Is(ctx.Err(), context.Canceled):
		return context.Canceled
	case failed > 0:
		return errSomeFailed
	default:
		return err
	}
}

// progressPrinter writes progress events as colored lines. Events arrive
// from several goroutines.
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

func newProgressPrinter(out io.Writer, verbose bool) *progressPrinter {
	return &progressPrinter{out: out, verbose: verbose}
}

var (
	errorColor   = color.New(color.FgRed)
	warningColor = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
)

func (p *progressPrinter) print(event download.ProgressEvent) {
	if event.Level == download.LevelVerbose && !p.verbose {
		return
	}

	prefix := " "
	switch event.Level {
	case download.LevelError:
		prefix = errorColor.Sprint("✗")
	case download.LevelWarning:
		prefix = warningColor.Sprint("!")
	case download.LevelSuccess:
		prefix = successColor.Sprint("✓")
	case download.LevelInfo:
		prefix = infoColor.Sprint("›")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s %s\n", prefix, event.Message)
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}
