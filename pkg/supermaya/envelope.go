package supermaya

import (
	"encoding/json"
	"fmt"
)

// Envelope is the structured result of one chat turn. Exactly one of the
// three concrete shapes is returned per request, always fully populated,
// even when the underlying provider call failed.
type Envelope interface {
	// MarshalEnvelope returns the canonical JSON text persisted alongside
	// the user query. The same bytes come back on retrieval.
	MarshalEnvelope() (string, error)
}

// TextResponse is the envelope for text-only conversational turns.
type TextResponse struct {
	PrimaryResponse   string         `json:"primary_response"`
	ImageURL          *string        `json:"image_url,omitempty"`
	ReferenceLinks    []string       `json:"reference_links,omitempty"`
	VisualizationSpec map[string]any `json:"visualization_spec,omitempty"`
}

// VisionResponse is the envelope for image-based turns. All three fields are
// required; failure paths substitute sentinel values instead of omitting them.
type VisionResponse struct {
	ImageDescription  string   `json:"image_description"`
	UserQueryAnswer   string   `json:"user_query_answer"`
	IdentifiedObjects []string `json:"identified_objects"`
}

// FinancialResponse is the envelope for market-data turns.
type FinancialResponse struct {
	PrimaryResponse   string         `json:"primary_response"`
	VisualizationSpec map[string]any `json:"visualization_spec,omitempty"`
}

func (t TextResponse) MarshalEnvelope() (string, error)      { return marshalEnvelope(t) }
func (v VisionResponse) MarshalEnvelope() (string, error)    { return marshalEnvelope(v) }
func (f FinancialResponse) MarshalEnvelope() (string, error) { return marshalEnvelope(f) }

func marshalEnvelope(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	return string(data), nil
}

const vegaLiteSchemaURL = "https://vega.github.io/schema/vega-lite/v5.json"

// chartValue is one inline data row of a price chart.
type chartValue struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// buildLineChartSpec builds a Vega-Lite line chart of date/price pairs. The
// spec is opaque payload for the frontend; nothing here inspects it again.
func buildLineChartSpec(symbol string, values []chartValue) map[string]any {
	rows := make([]any, 0, len(values))
	for _, v := range values {
		rows = append(rows, map[string]any{"date": v.Date, "price": v.Price})
	}
	return map[string]any{
		"$schema":     vegaLiteSchemaURL,
		"description": fmt.Sprintf("Stock price of %s", symbol),
		"data":        map[string]any{"values": rows},
		"mark":        "line",
		"encoding": map[string]any{
			"x": map[string]any{"field": "date", "type": "temporal"},
			"y": map[string]any{"field": "price", "type": "quantitative"},
		},
	}
}
