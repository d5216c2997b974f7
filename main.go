package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adrg/xdg"
	"github.com/peterh/liner"
	"github.com/takoeight0821/ember/config"
	"github.com/takoeight0821/ember/driver"
	"github.com/takoeight0821/ember/eval"
	"github.com/takoeight0821/ember/modules/sqldb"
	"github.com/takoeight0821/ember/modules/text"
	"github.com/takoeight0821/ember/utils"
)

func main() {
	const (
		inputUsage = "input file or directory of *.em scripts"
	)
	var inputPath, configPath, expr string
	flag.StringVar(&inputPath, "input", "", inputUsage)
	flag.StringVar(&inputPath, "i", "", inputUsage+" (shorthand)")
	flag.StringVar(&configPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/ember/config.yaml)")
	flag.StringVar(&expr, "e", "", "evaluate a single expression and print its value")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, inputPath, configPath, expr); err != nil {
		report(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, inputPath, configPath, expr string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	r, closeModules, err := NewRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer closeModules()

	switch {
	case expr != "":
		return RunExpression(ctx, r, expr)
	case inputPath == "":
		return RunPrompt(ctx, r)
	default:
		return RunPath(ctx, r, inputPath, logger)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		found, err := xdg.SearchConfigFile(filepath.Join("ember", "config.yaml"))
		if err != nil {
			return config.Default(), nil
		}
		path = found
	}
	return config.Load(path)
}

// NewRuntime builds a runtime with the native modules cfg enables.
// The returned function releases what the modules hold.
func NewRuntime(cfg config.Config, logger *slog.Logger) (*driver.Runtime, func(), error) {
	r := driver.NewRuntime(
		driver.WithLogger(logger),
		driver.WithMaxCallDepth(cfg.MaxCallDepth),
		driver.WithTopLevelReturn(cfg.TopLevelReturn),
	)
	closer := func() {}

	if cfg.Modules.Text.Enabled {
		m, err := text.Module()
		if err != nil {
			return nil, closer, err
		}
		if err := r.RegisterNativeModule(m); err != nil {
			return nil, closer, err
		}
	}

	if cfg.Modules.SQL.Driver != "" {
		db, err := sqldb.Open(cfg.Modules.SQL.Driver, cfg.Modules.SQL.DSN)
		if err != nil {
			return nil, closer, err
		}
		closer = func() {
			if err := db.Close(); err != nil {
				logger.Warn("close database", "driver", db.Driver(), "error", err)
			}
		}
		m, err := db.Module()
		if err != nil {
			return nil, closer, err
		}
		if err := r.RegisterNativeModule(m); err != nil {
			return nil, closer, err
		}
	}

	return r, closer, nil
}

var history = filepath.Join(xdg.DataHome, "ember", "history")

func RunPrompt(ctx context.Context, r *driver.Runtime) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer func() {
		if err := os.MkdirAll(filepath.Dir(history), os.ModePerm); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		if f, err := os.Create(history); err == nil {
			defer f.Close()
			if _, err := line.WriteHistory(f); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
		}
		line.Close()
	}()

	if f, err := os.Open(history); err == nil {
		defer f.Close()
		if _, err := line.ReadHistory(f); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	session := r.NewSession()
	for {
		input, err := line.Prompt("> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		line.AppendHistory(input)
		v, err := session.Run(ctx, input)
		if err != nil {
			report(os.Stderr, err)
			continue
		}
		if v != nil {
			fmt.Println(eval.Stringify(v))
		}
	}
}

// RunPath runs one script, or every script under a directory in lexical order.
func RunPath(ctx context.Context, r *driver.Runtime, path string, logger *slog.Logger) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return RunFile(ctx, r, path)
	}

	files, err := utils.FindSourceFiles(path)
	if err != nil {
		return err
	}
	slices.Sort(files)

	var errs []error
	for _, file := range files {
		logger.Info("run script", "file", file)
		if err := RunFile(ctx, r, file); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
		}
	}
	return errors.Join(errs...)
}

func RunFile(ctx context.Context, r *driver.Runtime, path string) error {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	sc, err := r.Evaluate(ctx, string(bytes))
	if err != nil {
		return err
	}

	results := sc.Results()
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	var failed []string
	for _, name := range names {
		if !results[name] {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d tests failed: %s", len(failed), len(names), strings.Join(failed, ", "))
	}
	return nil
}

// RunExpression evaluates a single expression with every native module imported.
func RunExpression(ctx context.Context, r *driver.Runtime, expr string) error {
	expr = strings.TrimSpace(expr)
	if !strings.HasSuffix(expr, ";") {
		expr += ";"
	}
	r.RegisterCustomizer(driver.ExpressionCustomizer{})

	v, err := r.Run(ctx, expr)
	if err != nil {
		return err
	}
	fmt.Println(eval.Stringify(v))
	return nil
}

func report(w io.Writer, err error) {
	for _, err := range utils.Flatten(err) {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}
