// Package codec encodes exchange messages for transport outside the process.
//
// Every codec writes the same Envelope: the message id, its destination path,
// the payload kind and bytes, and the timestamp. The JSON codec is readable
// and carries a "type" discriminator; the CBOR codec is compact and
// deterministic.
package codec

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/casualjim/swamp"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// ErrInvalidEnvelope is returned when encoded data is not a well formed
// envelope. The failing field is named in the wrapping error.
var ErrInvalidEnvelope = errors.New("codec: invalid envelope")

// ErrUnknownCodec is returned by ByName.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Kind tells how the envelope data must be read back.
type Kind string

const (
	KindBytes Kind = "bytes"
	KindText  Kind = "text"
)

func (k Kind) valid() bool {
	return k == KindBytes || k == KindText
}

// Envelope is the transport form of a swamp.Mesg.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	Dest      string          `json:"dest"`
	Kind      Kind            `json:"kind"`
	Data      []byte          `json:"data"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Codec converts messages to and from bytes.
type Codec interface {
	Name() string
	ContentType() string
	Encode(swamp.Mesg) ([]byte, error)
	Decode([]byte) (swamp.Mesg, error)
}

var codecs = []Codec{JSON(), CBOR()}

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	i := slices.IndexFunc(codecs, func(c Codec) bool { return c.Name() == name })
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return codecs[i], nil
}

// ByContentType returns the codec that writes contentType.
func ByContentType(contentType string) (Codec, error) {
	i := slices.IndexFunc(codecs, func(c Codec) bool { return c.ContentType() == contentType })
	if i < 0 {
		return nil, fmt.Errorf("%w: content type %q", ErrUnknownCodec, contentType)
	}
	return codecs[i], nil
}

// Names lists the available codecs.
func Names() []string {
	names := make([]string, 0, len(codecs))
	for _, c := range codecs {
		names = append(names, c.Name())
	}
	return names
}

// FromMesg builds the envelope of m. A message without a payload is sent as
// empty bytes.
func FromMesg(m swamp.Mesg) Envelope {
	env := Envelope{
		ID:        m.ID,
		Dest:      m.Dest.String(),
		Kind:      KindBytes,
		Timestamp: m.Timestamp,
	}
	switch data := m.Data.(type) {
	case swamp.Text:
		env.Kind = KindText
		env.Data = []byte(data)
	case swamp.Bytes:
		env.Data = []byte(data)
	}
	return env
}

// Mesg rebuilds the message carried by the envelope.
func (e Envelope) Mesg() swamp.Mesg {
	m := swamp.Mesg{
		ID:        e.ID,
		Dest:      swamp.NewPath(e.Dest),
		Timestamp: e.Timestamp,
	}
	if e.Kind == KindText {
		m.Data = swamp.Text(e.Data)
	} else {
		m.Data = swamp.Bytes(e.Data)
	}
	return m
}

func (e Envelope) validate() error {
	if e.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidEnvelope)
	}
	if !e.Kind.valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEnvelope, e.Kind)
	}
	if time.Time(e.Timestamp).IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEnvelope)
	}
	return nil
}
