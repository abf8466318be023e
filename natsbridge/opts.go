package natsbridge

import (
	"log/slog"

	"github.com/casualjim/swamp/codec"
	"github.com/fogfish/opts"
)

const (
	defaultPrefix = "swamp"
	defaultBuffer = 64
)

// Prefix sets the subject every path is mapped under. Defaults to "swamp".
var Prefix = opts.ForName[Bridge, string]("prefix")

// Codec sets the codec used for outbound messages. Inbound messages are
// decoded according to their Content-Type header. Defaults to codec.JSON().
var Codec = opts.ForName[Bridge, codec.Codec]("codec")

// Buffer sets how many inbound messages may wait for Run. Defaults to 64.
var Buffer = opts.ForName[Bridge, int]("buffer")

// Logger sets the logger of the bridge. Defaults to slog.Default().
var Logger = opts.ForName[Bridge, *slog.Logger]("logger")
