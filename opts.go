package swamp

import (
	"log/slog"

	"github.com/casualjim/swamp/ownership"
	"github.com/fogfish/opts"
)

// Mode selects the ownership strategy of the exchange's nodes. Defaults to
// ownership.Exclusive.
var Mode = opts.ForName[Exchange, ownership.Mode]("mode")

// StrictPaths makes CreateNode and InsertNode reject malformed paths with
// ErrInvalidPath instead of keeping them verbatim.
var StrictPaths = opts.ForName[Exchange, bool]("strictPaths")

// Logger sets the logger of the exchange. Defaults to slog.Default().
var Logger = opts.ForName[Exchange, *slog.Logger]("logger")

// Observers adds hooks that see every delivery made by the exchange, on every
// node, after the node's own listeners.
func Observers(hook Hook, extraHooks ...Hook) opts.Option[Exchange] {
	return opts.Type[Exchange](func(o *Exchange) error {
		o.observers = append(o.observers, hook)
		o.observers = append(o.observers, extraHooks...)
		return nil
	})
}
