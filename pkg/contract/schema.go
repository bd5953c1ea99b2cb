package contract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// summarySchema is the wire shape of a SealedSummary (JSON Schema draft
// 2020-12). Structural validation runs before the semantic rules so a
// malformed payload never reaches them.
const summarySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["reportHash", "integrityScore", "findings", "actors", "gpsCoordinates", "tripleVerificationStatus"],
  "additionalProperties": false,
  "properties": {
    "reportHash": {"type": "string", "pattern": "^[0-9a-fA-F]{64}$"},
    "integrityScore": {"type": "integer"},
    "tripleVerificationStatus": {"type": "string", "maxLength": 32},
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["category", "severity", "confidence", "evidenceCount"],
        "additionalProperties": false,
        "properties": {
          "category": {"type": "string"},
          "severity": {"type": "string"},
          "confidence": {"type": "number"},
          "evidenceCount": {"type": "integer"}
        }
      }
    },
    "actors": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["pseudonymId", "consistencyScore"],
        "additionalProperties": false,
        "properties": {
          "pseudonymId": {"type": "string"},
          "consistencyScore": {"type": "number"}
        }
      }
    },
    "gpsCoordinates": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["latitude", "longitude", "accuracy", "source", "confidence"],
        "additionalProperties": false,
        "properties": {
          "latitude": {"type": "number"},
          "longitude": {"type": "number"},
          "accuracy": {"type": "number"},
          "source": {"type": "string"},
          "confidence": {"type": "number"}
        }
      }
    }
  }
}`

var compiledSummarySchema = mustCompileSummarySchema()

func mustCompileSummarySchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const url = "https://caseproof.schemas.local/contract/sealed_summary.schema.json"
	if err := c.AddResource(url, strings.NewReader(summarySchema)); err != nil {
		panic(err)
	}
	return c.MustCompile(url)
}

// ValidateWire checks an inbound JSON payload against the summary schema,
// decodes it, and runs the full rule set. This is the entry point transport
// wrappers must call on every request path that accepts a summary.
func (v *Validator) ValidateWire(ctx context.Context, raw []byte) (*SealedSummary, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, violation(RuleWireShape, "payload is not valid JSON")
	}
	if err := compiledSummarySchema.Validate(generic); err != nil {
		return nil, violation(RuleWireShape, "payload does not match the sealed summary schema")
	}

	var s SealedSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, violation(RuleWireShape, "payload does not decode as a sealed summary")
	}
	if err := v.Validate(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
