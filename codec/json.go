package codec

import (
	"fmt"
	"unicode/utf8"

	"github.com/casualjim/swamp"
	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	envelopeType   = "swamp.mesg"
	encodingBase64 = "base64"
)

var envelopeJSON = []byte(`{"type":"swamp.mesg"}`)

// MarshalJSON writes the envelope with a "type" discriminator. Text data is
// written as a string, bytes data as base64. Text that is not valid UTF-8 is
// written as base64 too, flagged with "encoding", so its bytes survive.
func (e Envelope) MarshalJSON() ([]byte, error) {
	result := envelopeJSON

	var err error
	result, err = sjson.SetBytes(result, "id", e.ID.String())
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "dest", e.Dest)
	if err != nil {
		return nil, err
	}

	result, err = sjson.SetBytes(result, "kind", string(e.Kind))
	if err != nil {
		return nil, err
	}

	if e.Kind == KindText && utf8.Valid(e.Data) {
		result, err = sjson.SetBytes(result, "data", string(e.Data))
	} else {
		if e.Kind == KindText {
			result, err = sjson.SetBytes(result, "encoding", encodingBase64)
			if err != nil {
				return nil, err
			}
		}
		var raw []byte
		raw, err = json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		result, err = sjson.SetRawBytes(result, "data", raw)
	}
	if err != nil {
		return nil, err
	}

	return sjson.SetBytes(result, "timestamp", e.Timestamp.String())
}

// UnmarshalJSON reads an envelope written by MarshalJSON.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("%w: invalid json", ErrInvalidEnvelope)
	}

	msgType := gjson.GetBytes(data, "type")
	if !msgType.Exists() || msgType.String() != envelopeType {
		return fmt.Errorf("%w: missing or invalid type, expected %q", ErrInvalidEnvelope, envelopeType)
	}

	id := gjson.GetBytes(data, "id")
	if !id.Exists() {
		return fmt.Errorf("%w: missing required field 'id'", ErrInvalidEnvelope)
	}
	if err := e.ID.UnmarshalText([]byte(id.String())); err != nil {
		return fmt.Errorf("%w: invalid id: %w", ErrInvalidEnvelope, err)
	}

	dest := gjson.GetBytes(data, "dest")
	if !dest.Exists() {
		return fmt.Errorf("%w: missing required field 'dest'", ErrInvalidEnvelope)
	}
	e.Dest = dest.String()

	e.Kind = Kind(gjson.GetBytes(data, "kind").String())
	if !e.Kind.valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvelope, e.Kind)
	}

	encoded := false
	if enc := gjson.GetBytes(data, "encoding"); enc.Exists() {
		if enc.String() != encodingBase64 {
			return fmt.Errorf("%w: unknown encoding %q", ErrInvalidEnvelope, enc.String())
		}
		encoded = true
	}

	payload := gjson.GetBytes(data, "data")
	switch {
	case !payload.Exists() || payload.Type == gjson.Null:
		e.Data = nil
	case e.Kind == KindText && !encoded:
		e.Data = []byte(payload.String())
	default:
		if err := json.Unmarshal([]byte(payload.Raw), &e.Data); err != nil {
			return fmt.Errorf("%w: invalid data: %w", ErrInvalidEnvelope, err)
		}
	}

	ts := gjson.GetBytes(data, "timestamp")
	if !ts.Exists() {
		return fmt.Errorf("%w: missing required field 'timestamp'", ErrInvalidEnvelope)
	}
	parsed, err := strfmt.ParseDateTime(ts.String())
	if err != nil {
		return fmt.Errorf("%w: invalid timestamp: %w", ErrInvalidEnvelope, err)
	}
	e.Timestamp = parsed
	return nil
}

type jsonCodec struct{}

// JSON returns the JSON codec.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Encode(m swamp.Mesg) ([]byte, error) {
	return json.Marshal(FromMesg(m))
}

func (jsonCodec) Decode(data []byte) (swamp.Mesg, error) {
	var env Envelope
	if err := env.UnmarshalJSON(data); err != nil {
		return swamp.Mesg{}, err
	}
	if err := env.validate(); err != nil {
		return swamp.Mesg{}, err
	}
	return env.Mesg(), nil
}
