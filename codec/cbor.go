package codec

import (
	"fmt"
	"time"

	"github.com/casualjim/swamp"
	"github.com/casualjim/swamp/pkg/stdx"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// cborEnvelope keys fields by small integers to keep frames short.
type cborEnvelope struct {
	ID   []byte    `cbor:"1,keyasint"`
	Dest string    `cbor:"2,keyasint"`
	Kind string    `cbor:"3,keyasint"`
	Data []byte    `cbor:"4,keyasint,omitempty"`
	Time time.Time `cbor:"5,keyasint"`
}

var (
	cborEncMode = stdx.Must1(cborEncOptions().EncMode())
	cborDecMode = stdx.Must1(cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode())
)

func cborEncOptions() cbor.EncOptions {
	o := cbor.CoreDetEncOptions()
	o.Time = cbor.TimeRFC3339Nano
	return o
}

type cborCodec struct{}

// CBOR returns the CBOR codec. Encoding is deterministic: the same message
// always produces the same bytes.
func CBOR() Codec { return cborCodec{} }

func (cborCodec) Name() string        { return "cbor" }
func (cborCodec) ContentType() string { return "application/cbor" }

func (cborCodec) Encode(m swamp.Mesg) ([]byte, error) {
	env := FromMesg(m)
	return cborEncMode.Marshal(cborEnvelope{
		ID:   env.ID[:],
		Dest: env.Dest,
		Kind: string(env.Kind),
		Data: env.Data,
		Time: time.Time(env.Timestamp).UTC(),
	})
}

func (cborCodec) Decode(data []byte) (swamp.Mesg, error) {
	var raw cborEnvelope
	if err := cborDecMode.Unmarshal(data, &raw); err != nil {
		return swamp.Mesg{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	id, err := uuid.FromBytes(raw.ID)
	if err != nil {
		return swamp.Mesg{}, fmt.Errorf("%w: invalid id: %w", ErrInvalidEnvelope, err)
	}
	env := Envelope{
		ID:        id,
		Dest:      raw.Dest,
		Kind:      Kind(raw.Kind),
		Data:      raw.Data,
		Timestamp: strfmt.DateTime(raw.Time.UTC()),
	}
	if err := env.validate(); err != nil {
		return swamp.Mesg{}, err
	}
	return env.Mesg(), nil
}
