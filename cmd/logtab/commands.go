package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/logtab/logtab/pkg/checkpoint"
	"github.com/logtab/logtab/pkg/config"
	"github.com/logtab/logtab/pkg/convert"
	"github.com/logtab/logtab/pkg/index"
	"github.com/logtab/logtab/pkg/inspect"
	"github.com/logtab/logtab/pkg/query"
	"github.com/logtab/logtab/pkg/rows"
	"github.com/logtab/logtab/pkg/sinks"
	"github.com/logtab/logtab/pkg/telemetry"
	"github.com/logtab/logtab/pkg/tui"
	"github.com/logtab/logtab/pkg/watch"

	"github.com/spf13/cobra"
)

// indexFileName is the row-position sidecar written next to the Parquet
// output when --index is set.
const indexFileName = "entries.idx"

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted, cleaning up...")
		cancel()
	}()

	return ctx, cancel
}

// initTelemetry sets up OTLP tracing when enabled in config. The returned
// function flushes spans on exit.
func initTelemetry(ctx context.Context) func() {
	cfg := config.Global().Get()
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint == "" {
		return func() {}
	}

	shutdown, err := telemetry.Init(ctx, telemetry.DefaultConfig(cfg.Telemetry.Endpoint))
	if err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		}
		return func() {}
	}
	return func() { shutdown(context.Background()) }
}

func conversionOptions() convert.Options {
	return convert.Options{
		Mode:      rows.ParseMode(modeFlag),
		Collision: rows.ParseCollisionPolicy(collisionFlag),
	}
}

// convertFile runs the two-pass conversion of one input and writes Parquet
// output to outDir.
func convertFile(ctx context.Context, input, outDir string) (*convert.Result, *sinks.WriteStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "convert")
	defer span.End()

	opts := conversionOptions()
	conv := convert.New(input, opts)

	if err := conv.InferSchema(ctx); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, nil, err
	}
	res, err := conv.Decode(ctx)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, nil, err
	}

	sink := sinks.NewParquetSink(outDir).
		ChunkSize(chunkSizeFlag).
		Compression(compressionFlag).
		SourceFile(input)
	stats, err := sink.Write(ctx, res, opts.Mode)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, nil, err
	}

	if writeIndexFlag {
		var ix *index.EntryIndex
		if opts.Mode == rows.ModeLong {
			ix = index.BuildLong(res.Long)
		} else {
			ix = index.BuildWide(res.Wide)
		}
		if err := ix.Save(filepath.Join(outDir, indexFileName)); err != nil {
			return nil, nil, err
		}
	}

	return res, stats, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	flush := initTelemetry(ctx)
	defer flush()

	if verbose {
		tui.PrintHeader(version)
		fmt.Printf("  Input:       %s\n", inputFile)
		fmt.Printf("  Output:      %s\n", outputDir)
		fmt.Printf("  Mode:        %s\n", modeFlag)
		fmt.Printf("  Compression: %s\n", compressionFlag)
	}

	if !forceFlag {
		existing, _ := filepath.Glob(filepath.Join(outputDir, "file_part*.parquet"))
		if len(existing) > 0 {
			return fmt.Errorf("%s already contains Parquet output (use --force to overwrite)", outputDir)
		}
	}

	res, stats, err := convertFile(ctx, inputFile, outputDir)
	if err != nil {
		return err
	}

	tui.PrintResult(inputFile, res.Records, stats)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	flush := initTelemetry(ctx)
	defer flush()

	files, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .wpilog files matched")
	}

	backend, err := checkpointBackend(ctx)
	if err != nil {
		return err
	}

	bar := tui.ShowProgress(int64(len(files)), "converting")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workersFlag)

	for _, file := range files {
		file := file
		g.Go(func() error {
			defer bar.Add(1)

			if resumeFlag && checkpoint.ShouldSkip(gctx, backend, file) {
				tui.PrintSkipped(file)
				return nil
			}

			outDir := filepath.Join(outputDir, baseName(file))
			job := checkpoint.NewJob(file, outDir, modeFlag)
			job.Phase = checkpoint.PhaseConverting
			backend.Save(gctx, job)

			res, stats, err := convertFile(gctx, file, outDir)
			if err != nil {
				job.Fail(err)
				backend.Save(gctx, job)
				tui.PrintError(fmt.Errorf("%s: %w", file, err))
				return err
			}

			job.Complete(res.Records, stats.Rows, stats.Chunks)
			backend.Save(gctx, job)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	bar.Finish()
	fmt.Printf("\n  converted %d file(s)\n", len(files))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	report, err := inspect.Inspect(inputFile)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s\n", report.Path)
	fmt.Printf("  version %d.%d, %d records (%d control, %d data, %d orphaned)\n\n",
		report.Version>>8, report.Version&0xFF,
		report.Records, report.ControlRecords, report.DataRecords, report.Orphaned)

	var rowsOut [][]string
	for _, e := range report.Entries {
		rowsOut = append(rowsOut, []string{
			fmt.Sprintf("%d", e.ID),
			e.Name,
			e.Type,
			fmt.Sprintf("%d", e.Records),
		})
	}
	tui.PrintTable([]string{"ID", "NAME", "TYPE", "RECORDS"}, rowsOut)

	if len(report.Schemas) > 0 {
		fmt.Printf("\n  %d struct schema(s):\n", len(report.Schemas))
		for _, schema := range report.Schemas {
			names := make([]string, len(schema.Fields))
			for i, f := range schema.Fields {
				names[i] = f.Type + " " + f.Name
			}
			fmt.Printf("    %s: %s\n", schema.Name, strings.Join(names, "; "))
		}
	}

	if xlsxPath != "" {
		if err := report.WriteXLSX(xlsxPath); err != nil {
			return err
		}
		fmt.Printf("\n  report written to %s\n", xlsxPath)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	engine, err := query.NewEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if globFlag != "" {
		first, last, err := engine.TimeRange(ctx, globFlag)
		if err != nil {
			return err
		}
		counts, err := engine.EntryCounts(ctx, globFlag)
		if err != nil {
			return err
		}
		fmt.Printf("\n  time range: %.3fs to %.3fs (%.3fs)\n", first, last, last-first)
		fmt.Printf("  %d distinct entries\n\n", len(counts))
	}

	if len(args) == 0 {
		if globFlag == "" {
			return fmt.Errorf("pass a SQL query or --glob")
		}
		return nil
	}

	table, err := engine.Raw(ctx, args[0])
	if err != nil {
		return err
	}
	tui.PrintTable(table.Columns, table.Rows)
	fmt.Printf("\n  %d row(s)\n", len(table.Rows))
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	flush := initTelemetry(ctx)
	defer flush()

	watcher, err := watch.NewWatcher(watch.DefaultExtension)
	if err != nil {
		return err
	}
	defer watcher.Close()

	watcher.OnLog = func(path string) error {
		outDir := filepath.Join(outputDir, baseName(path))
		res, stats, err := convertFile(ctx, path, outDir)
		if err != nil {
			return err
		}
		tui.PrintResult(path, res.Records, stats)
		return nil
	}
	watcher.OnError = func(path string, err error) {
		tui.PrintError(fmt.Errorf("%s: %w", path, err))
	}

	if err := watcher.Add(watchDir); err != nil {
		return err
	}

	fmt.Printf("  watching %s (ctrl-c to stop)\n", watchDir)
	if err := watcher.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// expandInputs resolves args into .wpilog paths: directories are scanned,
// everything else is treated as a glob or literal path.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			matches, err := filepath.Glob(filepath.Join(arg, "*"+watch.DefaultExtension))
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}

		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %s", arg)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return files, nil
}

// checkpointBackend builds the configured backend for batch runs.
func checkpointBackend(ctx context.Context) (checkpoint.Backend, error) {
	cfg := config.Global().Get()

	switch backendFlag {
	case "redis":
		if cfg.Checkpoint.Redis == "" {
			return nil, fmt.Errorf("checkpoint.redis address not configured")
		}
		return checkpoint.NewRedisBackend(checkpoint.DefaultRedisConfig(cfg.Checkpoint.Redis))
	case "s3":
		if cfg.Checkpoint.Bucket == "" {
			return nil, fmt.Errorf("checkpoint.bucket not configured")
		}
		s3cfg := checkpoint.DefaultS3Config(cfg.Checkpoint.Bucket)
		s3cfg.Region = cfg.Checkpoint.Region
		return checkpoint.NewS3Backend(ctx, s3cfg)
	default:
		return checkpoint.NewFileBackend(cfg.Checkpoint.Dir)
	}
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
