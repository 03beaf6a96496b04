// logtab converts robot binary datalogs (.wpilog) to Apache Parquet,
// resolving struct schemas declared inside the log at decode time.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logtab/logtab/pkg/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	inputFile       string
	outputDir       string
	modeFlag        string
	collisionFlag   string
	compressionFlag string
	chunkSizeFlag   int
	writeIndexFlag  bool
	forceFlag       bool
	verbose         bool

	// Batch flags
	workersFlag int
	resumeFlag  bool
	backendFlag string

	// Inspect flags
	xlsxPath string

	// Query flags
	globFlag string

	// Watch flags
	watchDir string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "logtab",
	Short: "logtab - Convert robot datalogs to Parquet",
	Long: `logtab decodes binary .wpilog datalogs into tabular Parquet files.

Struct-typed entries are unpacked using schemas declared inside the log
itself; a schema pre-pass makes forward references work.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert one datalog to chunked Parquet files",
	Long: `Convert a .wpilog file to Parquet. Output is one file per chunk of
rows, named file_part000.parquet, file_part001.parquet, and so on.

Examples:
  logtab convert -i match.wpilog -o out/
  logtab convert -i match.wpilog -o out/ --mode long
  logtab convert -i match.wpilog -o out/ --compression zstd --chunk-size 100000
  logtab convert -i match.wpilog -o out/ --index`,
	RunE: runConvert,
}

var batchCmd = &cobra.Command{
	Use:   "batch [files or globs]",
	Short: "Convert many datalogs in parallel",
	Long: `Convert multiple .wpilog files concurrently. Each input gets its own
output subdirectory. With --resume, files recorded as complete in the
checkpoint store are skipped.

Examples:
  logtab batch logs/*.wpilog -o out/
  logtab batch logs/ -o out/ --workers 8 --resume`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Summarize a datalog without converting it",
	Long: `Scan a .wpilog file and report its entries, declared struct schemas,
and record counts.

Examples:
  logtab inspect -i match.wpilog
  logtab inspect -i match.wpilog --xlsx report.xlsx`,
	RunE: runInspect,
}

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run SQL over converted Parquet output",
	Long: `Execute a DuckDB SQL query. Use read_parquet() against converted
output, or pass --glob to get a time range summary.

Examples:
  logtab query "SELECT COUNT(*) FROM read_parquet('out/file_part*.parquet')"
  logtab query --glob 'out/file_part*.parquet'`,
	RunE: runQuery,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a directory and convert new datalogs as they appear",
	Long: `Monitor a directory for new or updated .wpilog files and convert
each one when it settles.

Examples:
  logtab watch -d /media/usb/logs -o out/`,
	RunE: runWatch,
}

func init() {
	cfg := config.Global().Get()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	convertCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input .wpilog file (required)")
	convertCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (required)")
	convertCmd.Flags().StringVar(&modeFlag, "mode", cfg.Conversion.Mode, "Row shape (wide, long)")
	convertCmd.Flags().StringVar(&collisionFlag, "collision", cfg.Conversion.Collision, "Column collision policy (prefix, error)")
	convertCmd.Flags().StringVar(&compressionFlag, "compression", cfg.Conversion.Compression, "Parquet compression (none, snappy, gzip, zstd, lz4, brotli)")
	convertCmd.Flags().IntVar(&chunkSizeFlag, "chunk-size", cfg.Conversion.ChunkSize, "Rows per output file")
	convertCmd.Flags().BoolVar(&writeIndexFlag, "index", cfg.Conversion.WriteIndex, "Write a row-position index sidecar")
	convertCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite existing Parquet output")
	convertCmd.MarkFlagRequired("input")
	convertCmd.MarkFlagRequired("output")

	batchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output root directory (required)")
	batchCmd.Flags().StringVar(&modeFlag, "mode", cfg.Conversion.Mode, "Row shape (wide, long)")
	batchCmd.Flags().StringVar(&compressionFlag, "compression", cfg.Conversion.Compression, "Parquet compression")
	batchCmd.Flags().IntVar(&chunkSizeFlag, "chunk-size", cfg.Conversion.ChunkSize, "Rows per output file")
	batchCmd.Flags().IntVar(&workersFlag, "workers", 4, "Concurrent conversions")
	batchCmd.Flags().BoolVar(&resumeFlag, "resume", false, "Skip files already recorded as converted")
	batchCmd.Flags().StringVar(&backendFlag, "checkpoint-backend", cfg.Checkpoint.Backend, "Checkpoint backend (file, redis, s3)")
	batchCmd.MarkFlagRequired("output")

	inspectCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Input .wpilog file (required)")
	inspectCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write the report as an Excel workbook")
	inspectCmd.MarkFlagRequired("input")

	queryCmd.Flags().StringVar(&globFlag, "glob", "", "Parquet glob for the built-in summary")

	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "Directory to watch (required)")
	watchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output root directory (required)")
	watchCmd.Flags().StringVar(&modeFlag, "mode", cfg.Conversion.Mode, "Row shape (wide, long)")
	watchCmd.Flags().StringVar(&compressionFlag, "compression", cfg.Conversion.Compression, "Parquet compression")
	watchCmd.MarkFlagRequired("dir")
	watchCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(watchCmd)
}
