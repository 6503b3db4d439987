package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"

	"apm-exporter/internal/model"
)

// responseEnvelope is the DashboardCustomGraphDraw response shape
type responseEnvelope struct {
	ErrorNo  *int   `json:"error_no"`
	ErrorMsg string `json:"error_msg"`
	Data     *struct {
		Table *model.ResponseTable `json:"table"`
	} `json:"data"`
}

// Validate decodes a raw response body into its table.
// Numeric cells are kept as json.Number so the transform sees the exact upstream text.
func Validate(raw []byte) (model.ResponseTable, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var env responseEnvelope
	if err := dec.Decode(&env); err != nil {
		return model.ResponseTable{}, &MalformedResponse{Err: err}
	}
	if env.ErrorNo == nil {
		return model.ResponseTable{}, &MalformedResponse{Err: errors.New("envelope has no error_no")}
	}
	if *env.ErrorNo != 0 {
		return model.ResponseTable{}, &APIError{Code: *env.ErrorNo, Message: env.ErrorMsg}
	}
	if env.Data == nil || env.Data.Table == nil {
		return model.ResponseTable{}, ErrMissingTable
	}
	return *env.Data.Table, nil
}
