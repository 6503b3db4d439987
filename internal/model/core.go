package model

import "encoding/json"

// Credentials carries the console session used to authenticate every fetch
type Credentials struct {
	Token  string `json:"token"`  // sent as x-csrf-token
	Cookie string `json:"cookie"` // sent verbatim as the Cookie header
}

// Valid reports whether both halves of the session are present
func (c Credentials) Valid() bool {
	return c.Token != "" && c.Cookie != ""
}

// BatchSpec is the inbound description of one export batch
type BatchSpec struct {
	AppIDs          string        `json:"appIds"`                    // newline separated application ids
	AppMapping      string        `json:"appMapping,omitempty"`      // JSON object: id -> display name
	TimeRange       string        `json:"timeRange"`                 // 7days, 30days, 90days, custom
	StartDate       string        `json:"startDate,omitempty"`       // YYYY-MM-DD, custom range only
	EndDate         string        `json:"endDate,omitempty"`         // YYYY-MM-DD, custom range only
	Kinds           []DatasetKind `json:"kinds"`                     // page, interface
	RequestInterval int           `json:"requestInterval,omitempty"` // milliseconds between tasks
	OutputFormat    string        `json:"outputFormat,omitempty"`    // csv or xlsx
}

// Settings is the last-used input persisted after a batch completes
type Settings struct {
	AppIDs     string `json:"appIds"`
	AppMapping string `json:"appMapping"`
}

// DefaultAppMapping seeds the name mapping when nothing has been saved yet
var DefaultAppMapping = map[string]string{
	"591025": "国内酒店H5",
	"602838": "商家平台H5",
}

// DefaultAppMappingJSON renders DefaultAppMapping the way a user would type it
func DefaultAppMappingJSON() string {
	b, _ := json.MarshalIndent(DefaultAppMapping, "", "  ")
	return string(b)
}
