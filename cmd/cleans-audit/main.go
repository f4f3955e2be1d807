// Command cleans-audit runs one audit offline: it reads a task export and a
// directory of reference tables and writes the issues report, vendor files
// and, given a reservation registry, the accounting feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/config"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pipeline"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/logger"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/service"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML config for rules and accounting settings")
		exportPath = flag.String("export", "", "task export (.csv, .xlsx)")
		refsDir    = flag.String("refs", "", "directory holding the reference tables")
		start      = flag.String("start", "", "first day, YYYY-MM-DD (default: last Monday week)")
		end        = flag.String("end", "", "last day, YYYY-MM-DD")
		registry   = flag.String("registry", "", "reservation registry for the accounting feed")
		outDir     = flag.String("out", ".", "output directory")
	)
	flag.Parse()

	if err := run(*configPath, *exportPath, *refsDir, *start, *end, *registry, *outDir); err != nil {
		slog.Error("audit failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, exportPath, refsDir, start, end, registryPath, outDir string) error {
	if exportPath == "" {
		return fmt.Errorf("-export is required")
	}

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	window, err := pipeline.ParseWindow(start, end, time.Now())
	if err != nil {
		return err
	}

	dir := refsDir
	if dir == "" {
		dir = cfg.Reference.Dir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	ctx := context.Background()
	references := service.NewReferenceService(service.NewDirSource(dir), cfg.Reference.Sheets, cfg.Accounting.VendorFix)
	runner := service.NewRunner(service.NewRunStore(1), fileArtifacts(outDir), references, cfg.Rules, cfg.Accounting)

	data, err := os.ReadFile(exportPath)
	if err != nil {
		return err
	}
	r, err := runner.Audit(ctx, "cli", filepath.Base(exportPath), data, window)
	if err != nil {
		return err
	}
	slog.Info("audit completed",
		"tasks", r.Summary.Tasks,
		"properties", r.Summary.Properties,
		"vendors", r.Summary.Vendors,
		"amount_due", r.Summary.AmountDue.StringFixed(2),
		"issues", r.Summary.Issues,
	)
	for _, lc := range pipeline.CountByLabel(r.Issues) {
		fmt.Printf("There are %d task(s) with %s\n", lc.Count, lc.Label)
	}

	if registryPath == "" {
		return nil
	}
	data, err = os.ReadFile(registryPath)
	if err != nil {
		return err
	}
	lines, err := runner.Accounting(ctx, r.ID, filepath.Base(registryPath), data)
	if err != nil {
		return err
	}
	slog.Info("accounting feed written", "lines", len(lines))
	return nil
}

// fileArtifacts stores run files flat in a local directory.
type fileArtifacts string

func (d fileArtifacts) path(objectName string) string {
	return filepath.Join(string(d), filepath.Base(objectName))
}

func (d fileArtifacts) Put(ctx context.Context, objectName string, data []byte, contentType string) error {
	p := d.path(objectName)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return err
	}
	slog.Info("wrote file", "path", p)
	return nil
}

func (d fileArtifacts) PresignedURL(ctx context.Context, objectName string) (string, error) {
	return d.path(objectName), nil
}

func (d fileArtifacts) Delete(ctx context.Context, objectName string) error {
	return os.Remove(d.path(objectName))
}
