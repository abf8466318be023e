package swamp

import (
	"time"

	"github.com/casualjim/swamp/pkg/uuidx"
	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
)

// Payload is the opaque body of a message, either Bytes or Text. The exchange
// never looks inside it.
type Payload interface {
	payload()
	Len() int
}

// Bytes is a raw byte payload.
type Bytes []byte

func (Bytes) payload() {}
func (b Bytes) Len() int { return len(b) }

// Text is a UTF-8 text payload.
type Text string

func (Text) payload() {}
func (t Text) Len() int { return len(t) }

// Mesg is a message addressed to a path.
type Mesg struct {
	ID        uuid.UUID
	Dest      Path
	Data      Payload
	Timestamp strfmt.DateTime
}

// NewMesg creates a message for dest with a fresh id. The timestamp has
// millisecond precision so it survives text encodings unchanged.
func NewMesg(dest Path, data Payload) Mesg {
	return Mesg{
		ID:        uuidx.New(),
		Dest:      dest,
		Data:      data,
		Timestamp: strfmt.DateTime(time.Now().UTC().Truncate(time.Millisecond)),
	}
}
