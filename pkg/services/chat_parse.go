package services

import (
	"encoding/json"
	"strings"

	"github.com/courtside-analytics/courtside/pkg/jsonutil"
	"github.com/courtside-analytics/courtside/pkg/llm"
	"github.com/courtside-analytics/courtside/pkg/models"
)

// sqlResponseWire is the generator's JSON shape with every field left raw so that
// missing or mistyped values can be replaced instead of failing the whole decode.
type sqlResponseWire struct {
	SQL             json.RawMessage `json:"sql"`
	Thought         json.RawMessage `json:"thought"`
	TacticalContext json.RawMessage `json:"tactical_context"`
}

type evaluationResponseWire struct {
	Satisfactory json.RawMessage `json:"satisfactory"`
	Response     json.RawMessage `json:"response"`
	NewSQL       json.RawMessage `json:"new_sql"`
}

// ParseSQLResponse decodes the generator output. It never fails: unparseable output
// yields a conversational response with no SQL and empty narrative fields.
func ParseSQLResponse(raw string) models.SQLResponse {
	wire, err := llm.ParseJSONResponse[sqlResponseWire](raw)
	if err != nil {
		return models.SQLResponse{}
	}

	return models.SQLResponse{
		SQL:             jsonutil.OptionalString(wire.SQL),
		Thought:         strings.TrimSpace(jsonutil.FlexibleStringValue(wire.Thought)),
		TacticalContext: strings.TrimSpace(jsonutil.FlexibleStringValue(wire.TacticalContext)),
	}
}

// ParseEvaluationResponse decodes the evaluator output. Unparseable output yields
// an unsatisfactory verdict with neither a narrative nor a corrective query.
func ParseEvaluationResponse(raw string) models.EvaluationResponse {
	wire, err := llm.ParseJSONResponse[evaluationResponseWire](raw)
	if err != nil {
		return models.EvaluationResponse{}
	}

	return models.EvaluationResponse{
		Satisfactory: jsonutil.FlexibleBool(wire.Satisfactory),
		Response:     jsonutil.OptionalString(wire.Response),
		NewSQL:       jsonutil.OptionalString(wire.NewSQL),
	}
}
