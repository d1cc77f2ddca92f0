// recognize is a one-shot CLI: it runs a directory (or explicit list) of
// slip images through the recognition pipeline and writes the result as
// CSV or XLSX, without needing the server or a database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/purrup/auto-overtime/internal/batch"
	"github.com/purrup/auto-overtime/internal/config"
	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/intake"
	"github.com/purrup/auto-overtime/internal/merge"
	"github.com/purrup/auto-overtime/internal/normalize"
	"github.com/purrup/auto-overtime/internal/repository/memory"
	"github.com/purrup/auto-overtime/internal/service"
	"github.com/purrup/auto-overtime/internal/vision"
	"github.com/purrup/auto-overtime/internal/vision/openai"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		dir    = flag.String("dir", "", "directory of slip images (jpg/png); alternative to listing files as arguments")
		out    = flag.String("out", "", "output file path (default: overtime_<date>.<format>)")
		format = flag.String("format", "", "output format: csv or xlsx (default from config)")
		label  = flag.String("label", "", "batch label used in the output filename")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *format == "" {
		*format = cfg.Export.DefaultFormat
	}

	paths, err := collectPaths(*dir, flag.Args())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images given; pass -dir or list image files as arguments")
	}

	files := make([]intake.UploadedFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		files = append(files, intake.UploadedFile{Filename: filepath.Base(p), Data: data})
	}

	extractor := vision.NewRetrier(openai.NewClient(&cfg.Vision), vision.RetryConfig{
		MaxRetries: cfg.Vision.MaxRetries,
		BaseDelay:  time.Duration(cfg.Vision.BackoffBaseMS) * time.Millisecond,
	})
	opts := normalize.Options{PreferMinguoOnConflict: cfg.Normalize.PreferMinguoOnConflict}
	orchestrator := batch.NewOrchestrator(extractor, opts, cfg.Batch.Concurrency)
	svc := service.NewBatchService(memory.NewBatchRepo(), orchestrator, merge.NewMerger(opts))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := svc.RunBatchSync(ctx, *label, files)
	if err != nil {
		return err
	}
	printSummary(result)

	export, err := svc.Export(context.Background(), result.ID, *format)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = export.Filename
	}
	if err := os.WriteFile(path, export.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Printf("wrote %d entries to %s\n", len(result.Entries), path)
	return nil
}

func collectPaths(dir string, args []string) ([]string, error) {
	if dir == "" {
		return args, nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("pass either -dir or file arguments, not both")
	}
	glob, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var paths []string
	for _, e := range glob {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), "."))
		if _, ok := domain.AllowedExtensions[ext]; ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func printSummary(result *domain.BatchResult) {
	fmt.Printf("batch %s: %s (%d entries, %d tokens, $%.4f)\n",
		result.ID, result.State, len(result.Entries), result.Usage.TotalTokens, result.CostUSD)
	for _, id := range result.TaskOrder {
		st := result.Statuses[id]
		line := fmt.Sprintf("  %-30s %s", st.SourceFilename, st.Result)
		if st.Result == domain.TaskResultFailed {
			line += ": " + st.FailureReason
		}
		if len(st.SalvagedFields) > 0 {
			line += " (salvaged: " + strings.Join(st.SalvagedFields, ", ") + ")"
		}
		fmt.Println(line)
	}
}
