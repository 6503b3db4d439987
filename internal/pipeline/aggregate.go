package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"apm-exporter/internal/model"
)

// MaxSectionName is the longest sheet name a workbook accepts
const MaxSectionName = 31

// Section is one named table of an export
type Section struct {
	Name     string               `json:"name"`
	Kind     model.DatasetKind    `json:"kind"`
	AppID    string               `json:"app_id,omitempty"` // empty for combined sections
	AppName  string               `json:"app_name,omitempty"`
	Combined bool                 `json:"combined"`
	Header   []string             `json:"header"`
	Records  []model.ExportRecord `json:"-"`
}

type datasetEntry struct {
	appID   string
	appName string
	records []model.ExportRecord
}

// dataset holds one kind's per-application entries and the combined rows in add order
type dataset struct {
	order    []string
	entries  map[string]*datasetEntry
	combined []model.ExportRecord
}

// Builder accumulates transformed records per kind and application for one batch.
// It is owned by a single orchestrator goroutine.
type Builder struct {
	kinds    []model.DatasetKind
	datasets map[model.DatasetKind]*dataset
}

// NewBuilder creates a builder; kinds fixes the section order, unknown kinds are appended on first Add
func NewBuilder(kinds ...model.DatasetKind) *Builder {
	b := &Builder{datasets: make(map[model.DatasetKind]*dataset)}
	for _, k := range kinds {
		b.dataset(k)
	}
	return b
}

func (b *Builder) dataset(kind model.DatasetKind) *dataset {
	ds, ok := b.datasets[kind]
	if !ok {
		ds = &dataset{entries: make(map[string]*datasetEntry)}
		b.datasets[kind] = ds
		b.kinds = append(b.kinds, kind)
	}
	return ds
}

// Add stores records for (kind, appID). A repeated call for the same pair is a no-op and returns false.
func (b *Builder) Add(kind model.DatasetKind, appID, appName string, records []model.ExportRecord) bool {
	ds := b.dataset(kind)
	if _, exists := ds.entries[appID]; exists {
		return false
	}
	ds.entries[appID] = &datasetEntry{appID: appID, appName: appName, records: records}
	ds.order = append(ds.order, appID)
	ds.combined = append(ds.combined, records...)
	return true
}

// Records returns the combined rows of kind
func (b *Builder) Records(kind model.DatasetKind) []model.ExportRecord {
	if ds, ok := b.datasets[kind]; ok {
		return ds.combined
	}
	return nil
}

// Finalize returns the named sections of the batch: per kind, one section per application
// with records followed by the combined section. Empty combinations are returned as notes.
func (b *Builder) Finalize() ([]Section, []string) {
	var (
		sections []Section
		notes    []string
	)
	names := newSectionNamer()

	for _, kind := range b.kinds {
		ds := b.datasets[kind]
		for _, appID := range ds.order {
			entry := ds.entries[appID]
			if len(entry.records) == 0 {
				notes = append(notes, fmt.Sprintf("no %s data for %s (%s), section skipped", kind.Label(), entry.appName, entry.appID))
				continue
			}
			sections = append(sections, Section{
				Name:    names.next(string(kind) + "-" + entry.appName),
				Kind:    kind,
				AppID:   entry.appID,
				AppName: entry.appName,
				Header:  unionHeader(entry.records),
				Records: entry.records,
			})
		}

		if len(ds.combined) == 0 {
			notes = append(notes, fmt.Sprintf("no %s data for any application, combined section skipped", kind.Label()))
			continue
		}
		sections = append(sections, Section{
			Name:     names.next(string(kind) + "-all-data"),
			Kind:     kind,
			Combined: true,
			Header:   unionHeader(ds.combined),
			Records:  ds.combined,
		})
	}
	return sections, notes
}

// unionHeader lists every field name in first-seen order
func unionHeader(records []model.ExportRecord) []string {
	var header []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, f := range rec.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				header = append(header, f.Name)
			}
		}
	}
	return header
}

var sheetNameReplacer = strings.NewReplacer(
	"[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", "\\", "_",
)

type sectionNamer struct {
	used map[string]bool
}

func newSectionNamer() *sectionNamer {
	return &sectionNamer{used: make(map[string]bool)}
}

// next sanitizes and truncates raw, appending "~N" until the name is unique (case-insensitive)
func (n *sectionNamer) next(raw string) string {
	base := strings.Trim(sheetNameReplacer.Replace(raw), "'")
	if base == "" {
		base = "section"
	}
	name := truncateRunes(base, MaxSectionName)
	for i := 2; n.used[strings.ToLower(name)]; i++ {
		suffix := "~" + strconv.Itoa(i)
		name = truncateRunes(base, MaxSectionName-len(suffix)) + suffix
	}
	n.used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
