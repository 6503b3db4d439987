package pipeline

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"apm-exporter/internal/model"
	"apm-exporter/pkg/utils"
)

const utf8BOM = "\ufeff"

// ExportResult represents the result of writing one output file
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "xlsx"
	Path        string    `json:"path"`
	Sections    []string  `json:"sections"`
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// ExportManager serializes finalized sections into a batch output directory
type ExportManager struct {
	Dir       string
	Format    OutputFormat
	Transform TransformOptions
	TimeLabel string
	Window    model.TimeWindow
	Logger    *slog.Logger
}

// Export writes sections in the manager's format. Failures are reported per file.
func (em *ExportManager) Export(sections []Section, kinds []model.DatasetKind) []ExportResult {
	if em.Logger == nil {
		em.Logger = slog.Default()
	}
	if len(sections) == 0 {
		return nil
	}

	switch em.Format {
	case FormatCSV:
		var results []ExportResult
		for _, section := range sections {
			if section.Combined {
				continue
			}
			results = append(results, em.exportCSV(section))
		}
		return results
	default:
		return []ExportResult{em.exportWorkbook(sections, kinds)}
	}
}

// CSVFileName is "{app}_{kind label}_{range label}_{start}_{end}.csv"
func (em *ExportManager) CSVFileName(section Section) string {
	return safeFileName(fmt.Sprintf("%s_%s_%s_%s_%s.csv",
		section.AppName, section.Kind.Label(), em.TimeLabel, em.Window.StartDate(), em.Window.EndDate()))
}

// WorkbookFileName is "apm_{kind+kind}_{range label}_{start}_{end}.xlsx"
func (em *ExportManager) WorkbookFileName(kinds []model.DatasetKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return safeFileName(fmt.Sprintf("apm_%s_%s_%s_%s.xlsx",
		strings.Join(names, "+"), em.TimeLabel, em.Window.StartDate(), em.Window.EndDate()))
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")

func safeFileName(name string) string {
	return fileNameReplacer.Replace(name)
}

func (em *ExportManager) exportCSV(section Section) ExportResult {
	path := filepath.Join(em.Dir, em.CSVFileName(section))
	result := ExportResult{
		Type:        string(FormatCSV),
		Path:        path,
		Sections:    []string{section.Name},
		RecordCount: len(section.Records),
		ExportedAt:  time.Now(),
	}

	if err := writeCSV(path, section); err != nil {
		result.Error = err.Error()
		em.Logger.Error("csv export failed", "path", path, "error", err)
		return result
	}
	result.Success = true
	em.Logger.Info("csv export written", "path", path, "records", result.RecordCount)
	return result
}

// writeCSV writes a UTF-8 CSV with a byte order mark so spreadsheet viewers detect the encoding
func writeCSV(path string, section Section) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if _, err := buf.WriteString(utf8BOM); err != nil {
		return err
	}
	w := csv.NewWriter(buf)
	if err := w.Write(section.Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, rec := range section.Records {
		if err := w.Write(recordRow(rec, section.Header)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return buf.Flush()
}

// recordRow aligns a record's values to header; missing fields are empty
func recordRow(rec model.ExportRecord, header []string) []string {
	row := make([]string, len(header))
	for i, name := range header {
		row[i], _ = rec.Get(name)
	}
	return row
}

func (em *ExportManager) exportWorkbook(sections []Section, kinds []model.DatasetKind) ExportResult {
	path := filepath.Join(em.Dir, em.WorkbookFileName(kinds))
	result := ExportResult{
		Type:       string(FormatXLSX),
		Path:       path,
		ExportedAt: time.Now(),
	}
	for _, s := range sections {
		result.Sections = append(result.Sections, s.Name)
		result.RecordCount += len(s.Records)
	}

	if err := em.writeWorkbook(path, sections); err != nil {
		result.Error = err.Error()
		em.Logger.Error("workbook export failed", "path", path, "error", err)
		return result
	}
	result.Success = true
	em.Logger.Info("workbook export written", "path", path, "sheets", len(sections), "records", result.RecordCount)
	return result
}

func (em *ExportManager) writeWorkbook(path string, sections []Section) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, section := range sections {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), section.Name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", section.Name, err)
			}
		} else if _, err := f.NewSheet(section.Name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", section.Name, err)
		}
		if err := em.writeSheet(f, section); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func (em *ExportManager) writeSheet(f *excelize.File, section Section) error {
	profile, err := ProfileFor(section.Kind)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(section.Header))
	for i, h := range section.Header {
		header[i] = h
	}
	if err := setRow(f, section.Name, 1, header); err != nil {
		return err
	}

	for r, rec := range section.Records {
		row := make([]interface{}, len(section.Header))
		for i, name := range section.Header {
			value, _ := rec.Get(name)
			row[i] = WorkbookCell(profile, name, value, em.Transform)
		}
		if err := setRow(f, section.Name, r+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of sheet %q: %w", row, sheet, err)
	}
	return nil
}

// WorkbookCell converts a formatted value back into a workbook cell.
// Plain numbers become rounded numbers; identifiers and unit-suffixed text stay strings.
func WorkbookCell(profile Profile, column, value string, opts TransformOptions) interface{} {
	if column == FieldAppID || column == FieldAppName {
		return value
	}
	f, ok := utils.ParseNumber(value)
	if !ok {
		return value
	}
	return utils.Round(f, profile.Precision(column, opts))
}
