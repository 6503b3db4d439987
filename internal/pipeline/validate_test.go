package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Run("success envelope", func(t *testing.T) {
		table, err := Validate([]byte(`{"error_no":0,"data":{"table":{"columns":["pid","CLS"],"units":["",""],"rows":[["/a",0.0000123]]}}}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"pid", "CLS"}, table.Columns)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, json.Number("0.0000123"), table.Rows[0][1])
	})

	t.Run("api error", func(t *testing.T) {
		_, err := Validate([]byte(`{"error_no":10003,"error_msg":"csrf token invalid"}`))
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 10003, apiErr.Code)
		assert.Equal(t, "csrf token invalid", apiErr.Message)
		assert.Equal(t, ClassAPI, Classify(err))
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Validate([]byte(`<html>login</html>`))
		assert.Equal(t, ClassMalformed, Classify(err))
	})

	t.Run("missing error_no", func(t *testing.T) {
		_, err := Validate([]byte(`{"data":{}}`))
		assert.Equal(t, ClassMalformed, Classify(err))
	})

	t.Run("missing table", func(t *testing.T) {
		_, err := Validate([]byte(`{"error_no":0,"data":{}}`))
		assert.ErrorIs(t, err, ErrMissingTable)

		_, err = Validate([]byte(`{"error_no":0}`))
		assert.ErrorIs(t, err, ErrMissingTable)
	})
}
