package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apm-exporter/internal/model"
)

func TestWithSettingsFallback(t *testing.T) {
	saved := model.Settings{AppIDs: "1\n2", AppMapping: `{"1":"One"}`}

	t.Run("default mapping when nothing saved", func(t *testing.T) {
		spec := withSettingsFallback(model.BatchSpec{AppIDs: "591025"}, model.Settings{}, false)
		assert.Equal(t, "591025", spec.AppIDs)

		var mapping map[string]string
		require.NoError(t, json.Unmarshal([]byte(spec.AppMapping), &mapping))
		assert.Equal(t, model.DefaultAppMapping, mapping)
	})

	t.Run("saved applications and mapping", func(t *testing.T) {
		spec := withSettingsFallback(model.BatchSpec{}, saved, true)
		assert.Equal(t, saved.AppIDs, spec.AppIDs)
		assert.Equal(t, saved.AppMapping, spec.AppMapping)
	})

	t.Run("explicit input wins", func(t *testing.T) {
		spec := withSettingsFallback(model.BatchSpec{AppIDs: "9", AppMapping: `{"9":"Nine"}`}, saved, true)
		assert.Equal(t, "9", spec.AppIDs)
		assert.Equal(t, `{"9":"Nine"}`, spec.AppMapping)
	})

	t.Run("saved list without mapping gets the default", func(t *testing.T) {
		spec := withSettingsFallback(model.BatchSpec{}, model.Settings{AppIDs: "1"}, true)
		assert.Equal(t, "1", spec.AppIDs)
		assert.Equal(t, model.DefaultAppMappingJSON(), spec.AppMapping)
	})
}

func TestConsoleObserver(t *testing.T) {
	var buf bytes.Buffer
	obs := consoleObserver{out: &buf}
	obs.Log(model.LogInfo, "starting")
	obs.Log(model.LogSuccess, "Hotel page-performance fetched: 3 row(s)")
	obs.Log(model.LogError, "Merchant page-performance failed: boom")

	assert.Equal(t, "· starting\n✓ Hotel page-performance fetched: 3 row(s)\n✗ Merchant page-performance failed: boom\n", buf.String())
}
