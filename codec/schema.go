package codec

import (
	"github.com/invopop/jsonschema"
)

var envelopeReflector = jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
}

// Schema returns the JSON schema of envelopes written by the JSON codec.
func Schema() *jsonschema.Schema {
	return envelopeReflector.Reflect(&Envelope{})
}

// JSONSchemaExtend describes the fields that MarshalJSON writes differently
// from their Go types.
func (Envelope) JSONSchemaExtend(s *jsonschema.Schema) {
	s.Title = "swamp message envelope"
	s.AdditionalProperties = jsonschema.FalseSchema

	s.Properties.Set("type", &jsonschema.Schema{
		Type:  "string",
		Const: envelopeType,
	})
	s.Properties.Set("id", &jsonschema.Schema{
		Type:        "string",
		Format:      "uuid",
		Description: "message id, a version 7 UUID when created by swamp",
	})
	s.Properties.Set("dest", &jsonschema.Schema{
		Type:        "string",
		Description: "destination path, empty for the root",
	})
	s.Properties.Set("kind", &jsonschema.Schema{
		Type: "string",
		Enum: []any{string(KindBytes), string(KindText)},
	})
	s.Properties.Set("data", &jsonschema.Schema{
		Type:        "string",
		Description: "text as is for kind text, base64 for kind bytes",
	})
	s.Properties.Set("encoding", &jsonschema.Schema{
		Type:        "string",
		Enum:        []any{encodingBase64},
		Description: "set when text data that is not valid UTF-8 was written as base64",
	})
	s.Properties.Set("timestamp", &jsonschema.Schema{
		Type:   "string",
		Format: "date-time",
	})
	s.Required = []string{"type", "id", "dest", "kind", "timestamp"}
}
