package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apm-exporter/internal/model"
)

func pageTable(rows ...[]any) model.ResponseTable {
	return model.ResponseTable{
		Columns: []string{"pid", "TTFB(AVG)(ms)", "LCP(AVG)(ms)", "INP(AVG)(ms)", "CLS(AVG)"},
		Units:   []string{"", "ms", "ms", "ms", ""},
		Rows:    rows,
	}
}

func interfaceTable(rows ...[]any) model.ResponseTable {
	return model.ResponseTable{
		Columns: []string{"http_url", "webpro_ajax.request_count(SUM)", "webpro_ajax.duration(PCT90)(ms)", "slow_request_count"},
		Units:   []string{"", "", "ms", ""},
		Rows:    rows,
	}
}

func TestPageTransform_ZeroThreshold(t *testing.T) {
	opts := DefaultTransformOptions()
	table := pageTable(
		[]any{"/two-zeros", json.Number("0"), json.Number("0"), json.Number("80"), json.Number("0.1")},
		[]any{"/three-zeros", 0, "0", json.Number("0"), json.Number("0.1")},
		[]any{"/all-zeros", 0, 0, 0, 0},
	)

	records, err := Transform(table, "591025", "Hotel", model.KindPage, opts)
	require.NoError(t, err)
	require.Len(t, records, 1)
	pid, _ := records[0].Get("pid")
	assert.Equal(t, "Hotel-/two-zeros", pid)

	opts.PageZeroThreshold = 4
	records, err = Transform(table, "591025", "Hotel", model.KindPage, opts)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestPageTransform_Formatting(t *testing.T) {
	table := pageTable(
		[]any{"/home", json.Number("123.4"), json.Number("0"), "N/A", json.Number("0.0000123")},
	)

	records, err := Transform(table, "591025", "Hotel", model.KindPage, DefaultTransformOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{FieldAppID, FieldAppName, "pid", "TTFB", "LCP", "INP", "CLS"}, rec.Names())
	assert.Equal(t, []string{"591025", "Hotel", "Hotel-/home", "123.40ms", "0", "N/A", "0.000012"}, rec.Values())
	assert.Equal(t, "591025", rec.AppID)
	assert.Equal(t, "Hotel", rec.AppName)
}

func TestPageTransform_LayoutShiftByChineseLabel(t *testing.T) {
	table := model.ResponseTable{
		Columns: []string{"pid", "累计布局偏移(AVG)"},
		Units:   []string{"", ""},
		Rows:    [][]any{{"/p", 0.25}},
	}
	records, err := Transform(table, "1", "App", model.KindPage, DefaultTransformOptions())
	require.NoError(t, err)
	v, ok := records[0].Get("累计布局偏移")
	require.True(t, ok)
	assert.Equal(t, "0.250000", v)
}

func TestPageTransform_EmptyTable(t *testing.T) {
	records, err := Transform(pageTable(), "1", "App", model.KindPage, DefaultTransformOptions())
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = Transform(model.ResponseTable{Rows: [][]any{{"x"}}}, "1", "App", model.KindPage, DefaultTransformOptions())
	var te *TransformError
	assert.ErrorAs(t, err, &te)
}

func TestInterfaceTransform_SlowThreshold(t *testing.T) {
	table := interfaceTable(
		[]any{"/api/slow-29", json.Number("500"), json.Number("1500.456"), json.Number("29")},
		[]any{"/api/slow-30", json.Number("500"), json.Number("1500.456"), json.Number("30")},
		[]any{"/api/sci", json.Number("900"), json.Number("0"), "3e+01"},
		[]any{"/api/unparsable", json.Number("900"), json.Number("10"), "n/a"},
	)

	records, err := Transform(table, "602838", "Merchant", model.KindInterface, DefaultTransformOptions())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []string{FieldAppID, FieldAppName, "http_url", "request_count", "duration(PCT90)", "slow_request_count"}, records[0].Names())
	assert.Equal(t, []string{"602838", "Merchant", "/api/slow-30", "500.00", "1500.46", "30.00"}, records[0].Values())
	assert.Equal(t, []string{"602838", "Merchant", "/api/sci", "900.00", "0", "30.00"}, records[1].Values())
}

func TestInterfaceTransform_MissingSlowColumn(t *testing.T) {
	table := model.ResponseTable{
		Columns: []string{"http_url", "webpro_ajax.request_count(SUM)"},
		Rows:    [][]any{{"/api", 10}},
	}
	_, err := Transform(table, "1", "App", model.KindInterface, DefaultTransformOptions())
	require.Error(t, err)
	assert.Equal(t, ClassTransform, Classify(err))
}

func TestTransform_IsPure(t *testing.T) {
	table := pageTable(
		[]any{"/a", json.Number("1.005"), json.Number("2"), json.Number("3"), json.Number("0.1")},
		[]any{"/b", json.Number("0"), json.Number("0"), json.Number("0"), json.Number("0")},
	)
	first, err := Transform(table, "1", "App", model.KindPage, DefaultTransformOptions())
	require.NoError(t, err)
	second, err := Transform(table, "1", "App", model.KindPage, DefaultTransformOptions())
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.Equal(t, string(a), string(b))
}

func TestTransform_UnknownKind(t *testing.T) {
	_, err := Transform(pageTable(), "1", "App", model.DatasetKind("trace"), DefaultTransformOptions())
	assert.Error(t, err)
}

func TestCleanLabels_CollisionFallsBackToRaw(t *testing.T) {
	labels := cleanLabels([]string{"duration(AVG)", "duration(SUM)"}, "", true)
	assert.Equal(t, []string{"duration", "duration(SUM)"}, labels)
}

func TestPageTransform_StripsPercentileAnnotations(t *testing.T) {
	table := model.ResponseTable{
		Columns: []string{"pid", "TTFB(PCT90)(ms)", "LCP(PCT75)(ms)", "INP(PCT75)(ms)", "CLS(PCT75)"},
		Units:   []string{"", "ms", "ms", "ms", ""},
		Rows:    [][]any{{"/home", json.Number("120"), json.Number("2400"), json.Number("80"), json.Number("0.1")}},
	}

	records, err := Transform(table, "591025", "Hotel", model.KindPage, DefaultTransformOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{FieldAppID, FieldAppName, "pid", "TTFB", "LCP", "INP", "CLS"}, records[0].Names())
	assert.Equal(t, []string{"591025", "Hotel", "Hotel-/home", "120.00ms", "2400.00ms", "80.00ms", "0.100000"}, records[0].Values())
}

func TestInterfaceTransform_KeepsPercentilesApart(t *testing.T) {
	table := model.ResponseTable{
		Columns: []string{
			"http_url",
			"webpro_ajax.duration(PCT50)(ms)",
			"webpro_ajax.duration(PCT90)(ms)",
			"webpro_ajax.duration(PCT99)(ms)",
			"slow_request_count",
		},
		Units: []string{"", "ms", "ms", "ms", ""},
		Rows:  [][]any{{"/api/list", json.Number("100"), json.Number("900"), json.Number("2000"), json.Number("40")}},
	}

	records, err := Transform(table, "591025", "Hotel", model.KindInterface, DefaultTransformOptions())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{FieldAppID, FieldAppName, "http_url", "duration(PCT50)", "duration(PCT90)", "duration(PCT99)", "slow_request_count"}, records[0].Names())
}
