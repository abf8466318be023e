// Package natsbridge connects nodes of a swamp exchange to NATS subjects.
//
// An exported node publishes every message delivered to it on the node's
// subject. An imported node receives every message published on its subject,
// sent into the exchange with the usual single-hop fan-out. A bridge never
// re-exports a message it imported, and ignores its own publications.
//
// Inbound messages are queued and delivered by Run. Run must be called from a
// goroutine allowed to use the exchange: any goroutine for a Shared exchange,
// the owning goroutine for an Exclusive one.
package natsbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/swamp"
	"github.com/casualjim/swamp/codec"
	"github.com/casualjim/swamp/pkg/slogx"
	"github.com/casualjim/swamp/pkg/uuidx"
	"github.com/fogfish/opts"
	"github.com/nats-io/nats.go"
)

const (
	// HeaderOrigin carries the id of the bridge that published a message.
	HeaderOrigin = "Swamp-Origin"
	// HeaderContentType carries the content type of the codec that encoded
	// the message.
	HeaderContentType = "Content-Type"
)

// ErrClosed is returned by a bridge after Close.
var ErrClosed = errors.New("natsbridge: bridge closed")

type inbound struct {
	path swamp.Path
	msg  *nats.Msg
}

// Bridge mirrors exchange nodes onto NATS subjects. Exported nodes publish
// every message delivered to them; imported nodes receive what is published
// on their subject. A Bridge is safe for concurrent use, delivery of imported
// messages happens on the goroutine that calls Run.
type Bridge struct {
	id     string
	client *nats.Conn
	x      *swamp.Exchange

	prefix string
	codec  codec.Codec
	buffer int
	logger *slog.Logger

	inbound  chan inbound
	imported *haxmap.Map[string, struct{}]
	exports  *haxmap.Map[string, swamp.Listener]
	imports  *haxmap.Map[string, *nats.Subscription]
	closed   atomic.Bool
	done     chan struct{}
}

// New creates a bridge between client and x. It panics when an option fails
// to apply.
func New(client *nats.Conn, x *swamp.Exchange, options ...opts.Option[Bridge]) *Bridge {
	b := &Bridge{
		id:       uuidx.NewString(),
		client:   client,
		x:        x,
		prefix:   defaultPrefix,
		codec:    codec.JSON(),
		buffer:   defaultBuffer,
		imported: haxmap.New[string, struct{}](),
		exports:  haxmap.New[string, swamp.Listener](),
		imports:  haxmap.New[string, *nats.Subscription](),
		done:     make(chan struct{}),
	}
	if err := opts.Apply(b, options); err != nil {
		panic(err)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With(slogx.LoggerName("natsbridge"), slog.String("bridge", b.id))
	b.inbound = make(chan inbound, max(b.buffer, 0))
	return b
}

func (b *Bridge) ID() string { return b.id }

// Subject returns the subject of path under the bridge's prefix.
func (b *Bridge) Subject(path swamp.Path) (string, error) {
	return SubjectFor(b.prefix, path)
}

// Export publishes every message delivered to the node at path. Exporting a
// path twice has no further effect.
func (b *Bridge) Export(ctx context.Context, path swamp.Path) error {
	if b.closed.Load() {
		return ErrClosed
	}
	subject, err := b.Subject(path)
	if err != nil {
		return err
	}
	if _, ok := b.exports.Get(path.String()); ok {
		return nil
	}

	l, err := b.x.Listen(path, swamp.HookFunc(func(ctx context.Context, _ swamp.Path, mesg swamp.Mesg) {
		b.publish(subject, mesg)
	}))
	if err != nil {
		return fmt.Errorf("export %q: %w", path, err)
	}
	if _, loaded := b.exports.GetOrSet(path.String(), l); loaded {
		return l.Close()
	}
	b.logger.DebugContext(ctx, "exporting node", slogx.Path(path), slog.String("subject", subject))
	return nil
}

func (b *Bridge) publish(subject string, mesg swamp.Mesg) {
	if _, ok := b.imported.Get(mesg.ID.String()); ok {
		return
	}
	data, err := b.codec.Encode(mesg)
	if err != nil {
		b.logger.Error("failed to encode message", slogx.Error(err), slog.String("subject", subject))
		return
	}

	msg := nats.NewMsg(subject)
	msg.Header.Set(HeaderOrigin, b.id)
	msg.Header.Set(HeaderContentType, b.codec.ContentType())
	msg.Data = data
	if err := b.client.PublishMsg(msg); err != nil {
		b.logger.Error("failed to publish message", slogx.Error(err), slog.String("subject", subject))
	}
}

// Import sends every message published on the subject of path to the node at
// path. The node must be registered.
func (b *Bridge) Import(ctx context.Context, path swamp.Path) error {
	if b.closed.Load() {
		return ErrClosed
	}
	subject, err := b.Subject(path)
	if err != nil {
		return err
	}
	if _, err := b.x.Describe(path); err != nil {
		return fmt.Errorf("import %q: %w", path, err)
	}
	if _, ok := b.imports.Get(path.String()); ok {
		return nil
	}

	sub, err := b.client.Subscribe(subject, func(msg *nats.Msg) {
		if msg.Header.Get(HeaderOrigin) == b.id {
			return
		}
		select {
		case b.inbound <- inbound{path: path, msg: msg}:
		case <-b.done:
		}
	})
	if err != nil {
		return fmt.Errorf("import %q: %w", path, err)
	}
	if _, loaded := b.imports.GetOrSet(path.String(), sub); loaded {
		return sub.Unsubscribe()
	}
	b.logger.DebugContext(ctx, "importing node", slogx.Path(path), slog.String("subject", subject))
	return nil
}

// Run delivers inbound messages until ctx is done or the bridge is closed.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return nil
		case in := <-b.inbound:
			b.deliver(ctx, in)
		}
	}
}

func (b *Bridge) deliver(ctx context.Context, in inbound) {
	c := b.codec
	if ct := in.msg.Header.Get(HeaderContentType); ct != "" {
		var err error
		if c, err = codec.ByContentType(ct); err != nil {
			b.logger.WarnContext(ctx, "dropping message", slogx.Error(err), slog.String("subject", in.msg.Subject))
			return
		}
	}

	mesg, err := c.Decode(in.msg.Data)
	if err != nil {
		b.logger.WarnContext(ctx, "dropping message", slogx.Error(err), slog.String("subject", in.msg.Subject))
		return
	}

	key := mesg.ID.String()
	b.imported.Set(key, struct{}{})
	defer b.imported.Del(key)
	if err := b.x.SendMesg(ctx, mesg, in.path); err != nil {
		b.logger.WarnContext(ctx, "failed to deliver message", slogx.Error(err), slogx.Path(in.path))
	}
}

// Close stops every import and export. Messages still queued are dropped.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.done)

	var errs []error
	b.imports.ForEach(func(path string, sub *nats.Subscription) bool {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, fmt.Errorf("unsubscribe %q: %w", path, err))
		}
		return true
	})
	b.exports.ForEach(func(path string, l swamp.Listener) bool {
		if err := l.Close(); err != nil && !errors.Is(err, swamp.ErrClosed) {
			errs = append(errs, fmt.Errorf("unlisten %q: %w", path, err))
		}
		return true
	})
	return errors.Join(errs...)
}
