package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"apm-exporter/internal/model"
)

// QueryDescriptor is the DashboardCustomGraphDraw request body for one dataset kind and window.
// It is built once per kind and reused for every application; the app id travels as a header.
type QueryDescriptor struct {
	Graph                 Graph           `json:"graph"`
	CurrentVariableValues []any           `json:"current_varibale_values"` // upstream spelling
	StartTime             int64           `json:"start_time"`
	EndTime               int64           `json:"end_time"`
	Granularity           int             `json:"granularity"`
	GranularityUnit       string          `json:"granularity_unit"`
	FilterCondition       FilterCondition `json:"filter_condition"`
	OS                    string          `json:"os"`
}

// Graph describes the table widget being drawn
type Graph struct {
	ID            string        `json:"id"`
	GraphType     string        `json:"graph_type"`
	Name          string        `json:"name"`
	CompareConfig CompareConfig `json:"compare_config"`
	TableConf     TableConf     `json:"table_conf"`
}

type CompareConfig struct {
	CmpN int `json:"cmp_n"`
	Unit int `json:"unit"`
}

// TableConf lists the metric queries rendered as table columns
type TableConf struct {
	SimpleQueries  []SimpleQuery `json:"simple_queries"`
	FormulaQueries []any         `json:"formula_queries"`
	Precision      int           `json:"precision"`
	GroupByFields  []string      `json:"group_by_fields"`
	OrderBy        string        `json:"order_by"`
	Asc            bool          `json:"asc"`
	Limit          int           `json:"limit"`
}

// SimpleQuery is one metric column
type SimpleQuery struct {
	ID                          string         `json:"id"`
	Metric                      string         `json:"metric"`
	Alphabet                    string         `json:"alphabet"`
	MetricCategory              string         `json:"metric_category"`
	MetricCategoryName          string         `json:"metric_category_name"`
	Filters                     []MetricFilter `json:"filters"`
	FilterCondition             Condition      `json:"filter_condition"`
	Aggregator                  string         `json:"aggregator"`
	RollupTimeframeByAggregator string         `json:"rollup_timeframe_by_aggregator"`
	Alias                       string         `json:"alias"`
	Unit                        string         `json:"unit"`
	Rate                        bool           `json:"rate"`
	Hide                        bool           `json:"hide"`
}

// MetricFilter restricts the samples a metric query aggregates
type MetricFilter struct {
	Field    string   `json:"field"`
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

type Condition struct {
	Type string `json:"type"`
}

type FilterCondition struct {
	Type     string      `json:"type"`
	Children []Condition `json:"children"`
}

// Marshal serializes the descriptor as the request body
func (q QueryDescriptor) Marshal() ([]byte, error) {
	return json.Marshal(q)
}

type metricSlot struct {
	metric     string
	aggregator string
	unit       string
	alias      string
	filters    []MetricFilter
}

// queryLayout is the fixed metric/aggregator layout of one dataset kind
type queryLayout struct {
	graphName    string
	category     string
	categoryName string
	groupBy      []string
	slots        []metricSlot
}

var pageLayout = queryLayout{
	graphName:    "page performance",
	category:     "webpro_performance",
	categoryName: "performance",
	groupBy:      []string{"pid"},
	slots: []metricSlot{
		{metric: "webpro_perf.ttfb", aggregator: "PCT90", unit: "ms"},
		{metric: "webpro_perf.lcp", aggregator: "PCT75", unit: "ms"},
		{metric: "webpro_perf.inp", aggregator: "PCT75", unit: "ms"},
		{metric: "webpro_perf.cls", aggregator: "PCT75"},
	},
}

// slowRequestFilter marks requests slower than one second
var slowRequestFilter = MetricFilter{Field: "duration", Operator: ">", Values: []string{"1000"}}

var interfaceLayout = queryLayout{
	graphName:    "interface performance",
	category:     "webpro_ajax",
	categoryName: "interface",
	groupBy:      []string{"http_url"},
	slots: []metricSlot{
		{metric: "webpro_ajax.request_count", aggregator: "SUM"},
		{metric: "webpro_ajax.duration", aggregator: "PCT50", unit: "ms"},
		{metric: "webpro_ajax.duration", aggregator: "PCT90", unit: "ms"},
		{metric: "webpro_ajax.duration", aggregator: "PCT99", unit: "ms"},
		{metric: "webpro_ajax.request_count", aggregator: "SUM", alias: "slow_request_count", filters: []MetricFilter{slowRequestFilter}},
	},
}

// build renders the layout for a window; start and end are the only variable fields
func (l queryLayout) build(kind model.DatasetKind, window model.TimeWindow) QueryDescriptor {
	queries := make([]SimpleQuery, len(l.slots))
	for i, slot := range l.slots {
		alphabet := string(rune('a' + i))
		filters := slot.filters
		if filters == nil {
			filters = []MetricFilter{}
		}
		queries[i] = SimpleQuery{
			ID:                          queryID(kind, alphabet+"/"+slot.metric+"/"+slot.aggregator, window),
			Metric:                      slot.metric,
			Alphabet:                    alphabet,
			MetricCategory:              l.category,
			MetricCategoryName:          l.categoryName,
			Filters:                     filters,
			Aggregator:                  slot.aggregator,
			RollupTimeframeByAggregator: "AVG",
			Alias:                       slot.alias,
			Unit:                        slot.unit,
		}
	}

	return QueryDescriptor{
		Graph: Graph{
			ID:            queryID(kind, "graph", window),
			GraphType:     "table",
			Name:          l.graphName,
			CompareConfig: CompareConfig{CmpN: 1},
			TableConf: TableConf{
				SimpleQueries:  queries,
				FormulaQueries: []any{},
				Precision:      2,
				GroupByFields:  l.groupBy,
			},
		},
		CurrentVariableValues: []any{},
		StartTime:             window.Start,
		EndTime:               window.End,
		Granularity:           1,
		GranularityUnit:       "d",
		FilterCondition:       FilterCondition{Type: "and", Children: []Condition{}},
		OS:                    "webpro",
	}
}

// queryID mimics the console's "<10 digits>-<millis>" ids, derived from the slot so builds are repeatable
func queryID(kind model.DatasetKind, slot string, window model.TimeWindow) string {
	h := xxhash.Sum64String(string(kind) + "/" + slot)
	return fmt.Sprintf("%010d-%d", h%10_000_000_000, window.Start*1000)
}

// BuildQuery produces the query descriptor for a dataset kind and window
func BuildQuery(kind model.DatasetKind, window model.TimeWindow) (QueryDescriptor, error) {
	profile, err := ProfileFor(kind)
	if err != nil {
		return QueryDescriptor{}, err
	}
	return profile.BuildQuery(window), nil
}
