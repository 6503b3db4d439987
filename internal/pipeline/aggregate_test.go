package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apm-exporter/internal/model"
)

func record(appID, appName string, fields ...string) model.ExportRecord {
	rec := model.ExportRecord{AppID: appID, AppName: appName, Fields: []model.Field{
		{Name: FieldAppID, Value: appID},
		{Name: FieldAppName, Value: appName},
	}}
	for i := 0; i+1 < len(fields); i += 2 {
		rec.Fields = append(rec.Fields, model.Field{Name: fields[i], Value: fields[i+1]})
	}
	return rec
}

func TestBuilder_SectionsPerKindAndApplication(t *testing.T) {
	b := NewBuilder(model.KindPage, model.KindInterface)
	b.Add(model.KindPage, "1", "Hotel", []model.ExportRecord{record("1", "Hotel", "pid", "Hotel-/a")})
	b.Add(model.KindInterface, "1", "Hotel", []model.ExportRecord{record("1", "Hotel", "http_url", "/api")})
	b.Add(model.KindPage, "2", "Merchant", []model.ExportRecord{record("2", "Merchant", "pid", "Merchant-/b")})
	b.Add(model.KindInterface, "2", "Merchant", []model.ExportRecord{record("2", "Merchant", "http_url", "/api2")})

	sections, notes := b.Finalize()
	assert.Empty(t, notes)
	require.Len(t, sections, 6)

	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"page-Hotel", "page-Merchant", "page-all-data",
		"interface-Hotel", "interface-Merchant", "interface-all-data",
	}, names)

	combined := sections[2]
	assert.True(t, combined.Combined)
	require.Len(t, combined.Records, 2)
	assert.Equal(t, "1", combined.Records[0].AppID)
	assert.Equal(t, "2", combined.Records[1].AppID)
}

func TestBuilder_AddIsIdempotentPerApplication(t *testing.T) {
	b := NewBuilder(model.KindPage)
	assert.True(t, b.Add(model.KindPage, "1", "Hotel", []model.ExportRecord{record("1", "Hotel", "pid", "a")}))
	assert.False(t, b.Add(model.KindPage, "1", "Hotel", []model.ExportRecord{record("1", "Hotel", "pid", "b")}))

	assert.Len(t, b.Records(model.KindPage), 1)
}

func TestBuilder_EmptyCombinationsAreNotes(t *testing.T) {
	b := NewBuilder(model.KindPage, model.KindInterface)
	b.Add(model.KindPage, "1", "Hotel", nil)
	b.Add(model.KindPage, "2", "Merchant", []model.ExportRecord{record("2", "Merchant", "pid", "x")})
	b.Add(model.KindInterface, "1", "Hotel", nil)

	sections, notes := b.Finalize()
	require.Len(t, sections, 2)
	assert.Equal(t, "page-Merchant", sections[0].Name)
	assert.Equal(t, "page-all-data", sections[1].Name)
	assert.Len(t, notes, 3)
}

func TestBuilder_CombinedHeaderIsUnion(t *testing.T) {
	b := NewBuilder(model.KindPage)
	b.Add(model.KindPage, "1", "A", []model.ExportRecord{record("1", "A", "pid", "x", "TTFB", "1")})
	b.Add(model.KindPage, "2", "B", []model.ExportRecord{record("2", "B", "pid", "y", "LCP", "2")})

	sections, _ := b.Finalize()
	require.Len(t, sections, 3)
	assert.Equal(t, []string{FieldAppID, FieldAppName, "pid", "TTFB", "LCP"}, sections[2].Header)
}

func TestSectionNamer(t *testing.T) {
	n := newSectionNamer()

	long := n.next("interface-" + strings.Repeat("很长的应用名称", 6))
	assert.Equal(t, MaxSectionName, utf8.RuneCountInString(long))

	again := n.next("interface-" + strings.Repeat("很长的应用名称", 6))
	assert.NotEqual(t, long, again)
	assert.True(t, strings.HasSuffix(again, "~2"))
	assert.LessOrEqual(t, utf8.RuneCountInString(again), MaxSectionName)

	assert.Equal(t, "page-a_b_c", n.next("page-a/b:c"))
}
