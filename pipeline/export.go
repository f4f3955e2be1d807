package pipeline

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/model"
	"github.com/Royal-Reinforcement/Cleans-Invoicing-Assistant/pkg/tabular"
)

// archiveTime pins zip entry timestamps so identical inputs give identical bytes.
var archiveTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// IssuesTable lays out the issues report.
func IssuesTable(issues []model.Issue) *tabular.Table {
	header := append(append([]string(nil), model.TaskColumns...), model.ColIssue)
	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, is.Row())
	}
	return tabular.New(header, rows)
}

// TasksTable lays out one vendor's invoice file.
func TasksTable(tasks []model.Task) *tabular.Table {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, t.Row())
	}
	return tabular.New(model.TaskColumns, rows)
}

// AccountingTable lays out the accounting feed.
func AccountingTable(lines []model.BillingLine) *tabular.Table {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, l.Row())
	}
	return tabular.New(model.BillingColumns, rows)
}

// VendorArchive zips one CSV per vendor, named after the vendor.
func VendorArchive(groups []VendorGroup) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, g := range groups {
		data, err := tabular.WriteCSV(TasksTable(g.Tasks))
		if err != nil {
			return nil, err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     VendorFileName(g.Name),
			Method:   zip.Deflate,
			Modified: archiveTime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", g.Name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", g.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}
	return buf.Bytes(), nil
}

// VendorFileName is the trimmed vendor name with path separators replaced.
func VendorFileName(vendor string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSpace(vendor))
	return name + ".csv"
}

// FileName is the name of a run artifact, e.g. Issues_2024-03-04_2024-03-10.csv.
func FileName(prefix string, w Window, ext string) string {
	return fmt.Sprintf("%s_%s_%s%s", prefix, w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"), ext)
}
