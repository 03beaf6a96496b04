// +build ignore

// End-to-end test for logtab
// Run: go run test_e2e.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/logtab/logtab/pkg/convert"
	"github.com/logtab/logtab/pkg/query"
	"github.com/logtab/logtab/pkg/rows"
	"github.com/logtab/logtab/pkg/sinks"
	"github.com/logtab/logtab/pkg/testing/loggen"
)

func main() {
	ctx := context.Background()

	fmt.Println("=== logtab End-to-End Test ===")

	dir, err := os.MkdirTemp("", "logtab-e2e")
	if err != nil {
		fmt.Printf("FAIL: temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	// 1. Generate a log with a forward struct reference and a loop counter.
	fmt.Println("\n[1/4] Generating test log...")
	b := loggen.New().
		Start(1, "/Timestamp", "double", "", 0).
		Start(2, "/battery/voltage", "double", "", 0).
		Start(3, "/pose", "struct:Pose2d", "", 0)
	for i := 0; i < 10_000; i++ {
		ts := uint64(i) * 20_000
		b.Double(1, ts, float64(i)*0.02)
		b.Double(2, ts, 12.5-float64(i)*0.0001)
	}
	b.Start(4, "NT:/.schema/struct:Pose2d", "structschema", "", 0).
		String(4, 1, "double x;double y;double theta")

	logPath := filepath.Join(dir, "match.wpilog")
	if err := os.WriteFile(logPath, b.Bytes(), 0644); err != nil {
		fmt.Printf("FAIL: write log: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  wrote %s (%d bytes)\n", logPath, len(b.Bytes()))

	// 2. Two-phase conversion.
	fmt.Println("\n[2/4] Converting...")
	conv := convert.New(logPath, convert.Options{})
	if err := conv.InferSchema(ctx); err != nil {
		fmt.Printf("FAIL: schema pass: %v\n", err)
		os.Exit(1)
	}
	res, err := conv.Decode(ctx)
	if err != nil {
		fmt.Printf("FAIL: decode pass: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  %d records -> %d rows, %d columns\n", res.Records, res.Rows(), len(res.Columns))

	// 3. Write chunked Parquet.
	fmt.Println("\n[3/4] Writing Parquet...")
	outDir := filepath.Join(dir, "out")
	stats, err := sinks.NewParquetSink(outDir).
		ChunkSize(8_000).
		Compression("snappy").
		SourceFile(logPath).
		Write(ctx, res, rows.ModeWide)
	if err != nil {
		fmt.Printf("FAIL: write: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  %s\n", stats.Summary())

	// 4. Query it back with DuckDB.
	fmt.Println("\n[4/4] Querying...")
	engine, err := query.NewEngine()
	if err != nil {
		fmt.Printf("FAIL: duckdb: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	glob := filepath.Join(outDir, "*.parquet")
	first, last, err := engine.TimeRange(ctx, glob)
	if err != nil {
		fmt.Printf("FAIL: time range: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  time range: %.3fs .. %.3fs\n", first, last)

	counts, err := engine.EntryCounts(ctx, glob)
	if err != nil {
		fmt.Printf("FAIL: entry counts: %v\n", err)
		os.Exit(1)
	}
	for id, n := range counts {
		fmt.Printf("  entry %d: %d rows\n", id, n)
	}

	if stats.Rows != res.Rows() {
		fmt.Printf("FAIL: row count mismatch: wrote %d, decoded %d\n", stats.Rows, res.Rows())
		os.Exit(1)
	}

	fmt.Println("\n=== PASS ===")
}
