package swamp

import "context"

// Hook receives the messages delivered to a node.
//
// at is the path of the receiving node: the addressed node itself, or one of
// its subscribers. Hooks run after the exchange released every guard, so they
// may call back into the exchange.
type Hook interface {
	OnMesg(ctx context.Context, at Path, mesg Mesg)
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, at Path, mesg Mesg)

func (f HookFunc) OnMesg(ctx context.Context, at Path, mesg Mesg) {
	f(ctx, at, mesg)
}

// Listener is a hook attached to a node with Exchange.Listen.
type Listener interface {
	ID() string
	Path() Path
	// Close detaches the hook. Closing twice is a no-op.
	Close() error
}
