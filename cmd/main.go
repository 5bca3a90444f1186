package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"github.com/jaki95/dj-metadata-sync/config"
	"github.com/jaki95/dj-metadata-sync/internal/adapter"
	"github.com/jaki95/dj-metadata-sync/internal/dictify"
	"github.com/jaki95/dj-metadata-sync/internal/library"
	"github.com/jaki95/dj-metadata-sync/internal/progress"
	"github.com/jaki95/dj-metadata-sync/internal/syncer"
	"github.com/jaki95/dj-metadata-sync/internal/tagstore"
	"github.com/jaki95/dj-metadata-sync/internal/trackinfo"
)

const usage = `dj-metadata-sync - sync beatgrids and cue points between DJ libraries and your files.

Usage:
  dj-metadata-sync [options] import <mixxx|rekordbox> [-overwrite mode] [-mixxx-db path] [-rekordbox-xml path] [paths...]
  dj-metadata-sync [options] export rekordbox [-overwrite mode] [-rekordbox-xml path] [paths...]
  dj-metadata-sync [options] show <file>
  dj-metadata-sync [options] list

Overwrite modes:
  never    keep values the target already has (default)
  replace  overwrite values the target already has
  clear    drop everything the target has first

Options:
`

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// verbosity counts repeated -v flags.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*v++
	}
	return nil
}

type globals struct {
	configPath string
	verbose    verbosity
	jsonEvents bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var g globals
	flagSet := flag.NewFlagSet("dj-metadata-sync", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprint(stderr, usage)
		flagSet.PrintDefaults()
	}
	flagSet.StringVar(&g.configPath, "config", "", "Path to the YAML configuration file")
	flagSet.Var(&g.verbose, "v", "Increase log verbosity (repeatable)")
	flagSet.BoolVar(&g.jsonEvents, "json", false, "Print progress events as JSON lines instead of a progress bar")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return &ExitError{Code: 2}
	}

	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return &ExitError{Code: 2, Message: fmt.Sprintf("failed to load configuration: %v", err)}
	}
	setupLogging(cfg, g.verbose, stderr)

	command, rest := flagSet.Arg(0), flagSet.Args()[1:]
	slog.Debug("Running command", "command", command, "args", rest)

	switch command {
	case "import":
		return runSync(ctx, cfg, g, rest, stdout, stderr, true)
	case "export":
		return runSync(ctx, cfg, g, rest, stdout, stderr, false)
	case "show":
		return runShow(ctx, cfg, rest, stdout)
	case "list":
		return runList(ctx, cfg, stdout)
	default:
		flagSet.Usage()
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", command)}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func setupLogging(cfg *config.Config, verbose verbosity, w io.Writer) {
	opts := &slog.HandlerOptions{Level: slog.Level(cfg.LogLevel - 4*int(verbose))}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runSync(ctx context.Context, cfg *config.Config, g globals, args []string, stdout, stderr io.Writer, isImport bool) error {
	name := "export"
	if isImport {
		name = "import"
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return &ExitError{Code: 2, Message: fmt.Sprintf("%s: missing adapter name", name)}
	}
	adapterName, args := args[0], args[1:]

	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	overwrite := flagSet.String("overwrite", string(syncer.Never), "What to do with existing values: never, replace or clear")
	flagSet.StringVar(&cfg.Mixxx.DBPath, "mixxx-db", cfg.Mixxx.DBPath, "Mixxx database location")
	flagSet.StringVar(&cfg.Rekordbox.XMLPath, "rekordbox-xml", cfg.Rekordbox.XMLPath, "Rekordbox XML path")
	if err := flagSet.Parse(args); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	mode, err := syncer.ParseMode(*overwrite)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	lib, err := library.New(flagSet.Args(), cfg.Library.Extensions)
	if err != nil {
		return err
	}

	backend, err := tagstore.NewBackend(ctx, cfg.TagStore)
	if err != nil {
		return fmt.Errorf("failed to open tag store: %w", err)
	}
	defer tagstore.Close(backend)

	tracker := progress.NewProgressTracker()
	if g.jsonEvents {
		tracker.AddListener(jsonListener(stdout))
	} else {
		tracker.AddListener(barListener(stdout))
	}

	s := syncer.New(backend, syncer.Options{
		Mode:               mode,
		Namespace:          cfg.Namespace,
		MaxConcurrentTasks: cfg.MaxConcurrentTasks,
	}, tracker)

	if isImport {
		src, err := adapter.OpenSource(ctx, adapterName, cfg)
		if err != nil {
			return err
		}
		defer src.Close()

		_, err = s.Import(ctx, src, lib)
		return err
	}

	sink, err := adapter.OpenSink(ctx, adapterName, cfg)
	if err != nil {
		return err
	}
	if _, err := s.Export(ctx, sink, lib); err != nil {
		sink.Close()
		return err
	}
	tracker.UpdateProgress(progress.StageSaving, 100, "Saving library...")
	if err := sink.Close(); err != nil {
		return fmt.Errorf("failed to save %s: %w", adapterName, err)
	}
	return nil
}

func jsonListener(w io.Writer) func(progress.Event) {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(e progress.Event) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(e); err != nil {
			slog.Debug("Failed to write progress event", "error", err)
		}
	}
}

func barListener(w io.Writer) func(progress.Event) {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	out := w
	if f, ok := w.(*os.File); ok && f == os.Stdout {
		out = ansi.NewAnsiStdout()
	}
	return func(e progress.Event) {
		mu.Lock()
		defer mu.Unlock()

		details := e.TrackDetails
		switch {
		case details != nil && details.Outcome == "":
			bar = progressbar.NewOptions(
				details.TotalTracks,
				progressbar.OptionSetWriter(out),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetTheme(progressbar.ThemeASCII),
				progressbar.OptionFullWidth(),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+e.Message+"[reset]"),
			)
		case details != nil && bar != nil:
			bar.Add(1)
		case e.Stage == progress.StageComplete && bar != nil:
			bar.Finish()
			fmt.Fprintln(out)
		}
	}
}

func runShow(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return &ExitError{Code: 2, Message: "show: expected exactly one file"}
	}

	backend, err := tagstore.NewBackend(ctx, cfg.TagStore)
	if err != nil {
		return fmt.Errorf("failed to open tag store: %w", err)
	}
	defer tagstore.Close(backend)

	lib, err := library.New(args, nil)
	if err != nil {
		return err
	}
	location := lib.Paths()[0]

	info, err := trackinfo.Open(ctx, backend, location, cfg.Namespace)
	if err != nil {
		return err
	}
	tree, err := info.Tree()
	if err != nil {
		return err
	}
	data, err := dictify.MarshalJSON(tree)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err = stdout.Write(out.Bytes())
	return err
}

func runList(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	backend, err := tagstore.NewBackend(ctx, cfg.TagStore)
	if err != nil {
		return fmt.Errorf("failed to open tag store: %w", err)
	}
	defer tagstore.Close(backend)

	lister, ok := backend.(tagstore.Lister)
	if !ok {
		return fmt.Errorf("%w: %s tag store cannot list tracks", tagstore.ErrNotSupported, cfg.TagStore.Type)
	}
	locations, err := lister.List(ctx)
	if err != nil {
		return err
	}
	for _, location := range locations {
		fmt.Fprintln(stdout, location)
	}
	return nil
}
