package swamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/casualjim/swamp/internal/registry"
	"github.com/casualjim/swamp/ownership"
	"github.com/casualjim/swamp/pkg/slogx"
	"github.com/casualjim/swamp/pkg/uuidx"
	"github.com/fogfish/opts"
	"github.com/google/uuid"
)

type entry struct {
	id   uuid.UUID
	path Path
	ref  NodeRef
}

func (e entry) target() target {
	return target{id: e.id, path: e.path, ref: e.ref}
}

type nodeTable = registry.Registry[entry]

const (
	stateOpen int32 = iota
	statePoisoned
	stateClosed
)

// Exchange is a registry of nodes addressed by path, with subscription links
// between them and single-hop message fan-out.
//
// The registry sits behind its own guard, created in the same ownership mode
// as the nodes. Operations take the registry guard first and release it last,
// and hold at most one node guard at a time.
type Exchange struct {
	mode        ownership.Mode
	strictPaths bool
	logger      *slog.Logger
	observers   []Hook

	root     entry
	registry ownership.Ref[nodeTable]
	state    atomic.Int32
}

// New creates an exchange. It panics when an option fails to apply.
func New(options ...opts.Option[Exchange]) *Exchange {
	x := &Exchange{mode: ownership.Exclusive}
	if err := opts.Apply(x, options); err != nil {
		panic(err)
	}
	if x.logger == nil {
		x.logger = slog.Default()
	}
	x.logger = x.logger.With(slogx.LoggerName("swamp"), slogx.Mode(x.mode))

	root := newNode(Root(), nil)
	x.root = entry{id: root.id, path: Root(), ref: ownership.New(x.mode, root)}
	x.registry = ownership.New(x.mode, registry.New[entry]())
	return x
}

// NewExclusive creates an exchange for use from a single goroutine.
func NewExclusive(options ...opts.Option[Exchange]) *Exchange {
	return New(append(slices.Clip(options), Mode(ownership.Exclusive))...)
}

// NewShared creates an exchange that is safe for concurrent use.
func NewShared(options ...opts.Option[Exchange]) *Exchange {
	return New(append(slices.Clip(options), Mode(ownership.Shared))...)
}

// Mode reports the ownership mode the exchange was created with.
func (x *Exchange) Mode() ownership.Mode {
	return x.mode
}

// NewNode constructs a node in the exchange's ownership mode without
// registering it. A parent handle, when given, becomes the node's Parent link.
func (x *Exchange) NewNode(path Path, parent ...NodeRef) (NodeRef, error) {
	if err := x.usable(); err != nil {
		return nil, err
	}
	var pt *target
	if len(parent) > 0 && parent[0] != nil {
		p := parent[0]
		if p.Mode() != x.mode {
			return nil, fmt.Errorf("new node %q: %w", path, ErrModeMismatch)
		}
		t := target{ref: p}
		if err := p.With(func(n *Node) error {
			t.id, t.path = n.id, n.path
			return nil
		}); err != nil {
			return nil, x.check("new node", err)
		}
		pt = &t
	}
	return ownership.New(x.mode, newNode(path, pt)), nil
}

// CreateNode creates and registers a node under its registered parent.
// Ancestors are never created implicitly.
func (x *Exchange) CreateNode(path Path) error {
	if err := x.usable(); err != nil {
		return err
	}
	if err := x.checkPath(path); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("create %q: %w", path, ErrPathCollision)
	}

	err := x.registry.WithMut(func(reg *nodeTable) error {
		parent, ok := x.lookup(*reg, path.Parent())
		if !ok {
			return fmt.Errorf("create %q: parent %q: %w", path, path.Parent(), ErrNodeNotFound)
		}
		if _, taken := (*reg).Get(path.String()); taken {
			return fmt.Errorf("create %q: %w", path, ErrPathCollision)
		}

		pt := parent.target()
		node := newNode(path, &pt)
		e := entry{id: node.id, path: path, ref: ownership.New(x.mode, node)}
		return x.register(*reg, e, parent, true)
	})
	if err != nil {
		return x.check("create", err)
	}
	x.logger.Debug("node created", slogx.Path(path))
	return nil
}

// InsertNode registers a node built with NewNode at its own path. The
// exchange keeps its own handle; the caller still owns node.
func (x *Exchange) InsertNode(node NodeRef) error {
	if err := x.usable(); err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("insert: %w: nil handle", ErrNodeNotFound)
	}
	if node.Mode() != x.mode {
		return fmt.Errorf("insert: %w: node is %s, exchange is %s", ErrModeMismatch, node.Mode(), x.mode)
	}

	var e entry
	var parentLink Link
	var hasParent bool
	if err := node.With(func(n *Node) error {
		e = entry{id: n.id, path: n.path}
		parentLink, hasParent = n.parent()
		return nil
	}); err != nil {
		return x.check("insert", err)
	}
	if err := x.checkPath(e.path); err != nil {
		return err
	}
	if e.path.IsRoot() {
		return fmt.Errorf("insert %q: %w", e.path, ErrPathCollision)
	}

	err := x.registry.WithMut(func(reg *nodeTable) error {
		if _, taken := (*reg).Get(e.path.String()); taken {
			return fmt.Errorf("insert %q: %w", e.path, ErrPathCollision)
		}
		var parent entry
		var linked bool
		if hasParent {
			parent, linked = x.lookup(*reg, parentLink.targetPath)
			linked = linked && parent.id == parentLink.targetID
		}
		e.ref = node.Clone()
		if err := x.register(*reg, e, parent, linked); err != nil {
			e.ref.Release()
			return err
		}
		return nil
	})
	if err != nil {
		return x.check("insert", err)
	}
	x.logger.Debug("node inserted", slogx.Path(e.path))
	return nil
}

// register adds e to the table and, when linked, records a Child link on the
// parent. Called with the registry guard held.
func (x *Exchange) register(reg nodeTable, e entry, parent entry, linked bool) error {
	if !reg.Add(e.path.String(), e) {
		return fmt.Errorf("register %q: %w", e.path, ErrPathCollision)
	}
	if !linked {
		return nil
	}
	return parent.ref.WithMut(func(n *Node) error {
		n.createLink(e.target(), Child)
		return nil
	})
}

// GetNode returns a new handle to the node at path. The root path always
// resolves. The caller owns the handle and may Release it.
func (x *Exchange) GetNode(path Path) (NodeRef, error) {
	if err := x.usable(); err != nil {
		return nil, err
	}
	var ref NodeRef
	err := x.registry.With(func(reg *nodeTable) error {
		e, ok := x.lookup(*reg, path)
		if !ok {
			return fmt.Errorf("get %q: %w", path, ErrNodeNotFound)
		}
		ref = e.ref.Clone()
		return nil
	})
	if err != nil {
		return nil, x.check("get", err)
	}
	return ref, nil
}

// DelNode removes the node at path from the registry. Deletion does not
// cascade: registered children stay registered and lose their Parent link.
// Every link to the node is removed, as are the node's own links. Handles
// obtained earlier keep working.
func (x *Exchange) DelNode(path Path) error {
	if err := x.usable(); err != nil {
		return err
	}
	if path.IsRoot() {
		return fmt.Errorf("delete root: %w", ErrNodeNotFound)
	}

	var deleted entry
	var released []Link
	err := x.registry.WithMut(func(reg *nodeTable) error {
		e, ok := (*reg).Del(path.String())
		if !ok {
			return fmt.Errorf("delete %q: %w", path, ErrNodeNotFound)
		}
		deleted = e

		// one node guard at a time, in path order
		for _, other := range x.entries(*reg) {
			if err := other.ref.WithMut(func(n *Node) error {
				released = append(released, n.removeLinksTo(e.id)...)
				return nil
			}); err != nil {
				return err
			}
		}
		return e.ref.WithMut(func(n *Node) error {
			released = append(released, n.detach()...)
			return nil
		})
	})
	for _, link := range released {
		link.release()
	}
	if deleted.ref != nil {
		deleted.ref.Release()
	}
	if err != nil {
		return x.check("delete", err)
	}
	x.logger.Debug("node deleted", slogx.Path(path))
	return nil
}

// AddSubscription makes subscriber receive every message sent to node.
// Subscribing twice has no further effect.
func (x *Exchange) AddSubscription(node, subscriber Path) error {
	if err := x.link("subscribe", node, subscriber, Subscriber); err != nil {
		return err
	}
	x.logger.Debug("subscription added", slogx.Path(node), slogx.PathKey("subscriber", subscriber))
	return nil
}

// DelSubscription removes a subscription. A missing subscription is not an
// error; a missing node is.
func (x *Exchange) DelSubscription(node, subscriber Path) error {
	if err := x.unlink("unsubscribe", node, subscriber, Subscriber); err != nil {
		return err
	}
	x.logger.Debug("subscription removed", slogx.Path(node), slogx.PathKey("subscriber", subscriber))
	return nil
}

// Link records a custom relationship from one registered node to another.
// Parent and Child links are maintained by the exchange and are refused.
func (x *Exchange) Link(from, to Path, rel Relationship) error {
	if rel.Kind() == KindParent || rel.Kind() == KindChild {
		return fmt.Errorf("link %q to %q as %s: %w", from, to, rel, ErrInvalidRelationship)
	}
	return x.link("link", from, to, rel)
}

// Unlink removes a link recorded with Link or AddSubscription.
func (x *Exchange) Unlink(from, to Path, rel Relationship) error {
	if rel.Kind() == KindParent || rel.Kind() == KindChild {
		return fmt.Errorf("unlink %q from %q as %s: %w", to, from, rel, ErrInvalidRelationship)
	}
	return x.unlink("unlink", from, to, rel)
}

func (x *Exchange) link(op string, from, to Path, rel Relationship) error {
	if err := x.usable(); err != nil {
		return err
	}
	var replaced []Link
	err := x.registry.With(func(reg *nodeTable) error {
		src, ok := x.lookup(*reg, from)
		if !ok {
			return fmt.Errorf("%s %q: %w", op, from, ErrNodeNotFound)
		}
		dst, ok := x.lookup(*reg, to)
		if !ok {
			return fmt.Errorf("%s %q: %q: %w", op, from, to, ErrNodeNotFound)
		}
		return src.ref.WithMut(func(n *Node) error {
			replaced, _ = n.createLink(dst.target(), rel)
			return nil
		})
	})
	for _, l := range replaced {
		l.release()
	}
	return x.check(op, err)
}

func (x *Exchange) unlink(op string, from, to Path, rel Relationship) error {
	if err := x.usable(); err != nil {
		return err
	}
	var removed Link
	var found bool
	err := x.registry.With(func(reg *nodeTable) error {
		src, ok := x.lookup(*reg, from)
		if !ok {
			return fmt.Errorf("%s %q: %w", op, from, ErrNodeNotFound)
		}
		dst, ok := x.lookup(*reg, to)
		if !ok {
			return nil
		}
		return src.ref.WithMut(func(n *Node) error {
			removed, found = n.removeLink(dst.id, rel)
			return nil
		})
	})
	if found {
		removed.release()
	}
	return x.check(op, err)
}

type delivery struct {
	at    Path
	hooks []Hook
}

// SendMesg delivers mesg to the node at path and to each of its subscribers,
// one hop only. A node reached twice receives the message once. Delivery never
// changes the graph. Hooks run after every guard is released.
func (x *Exchange) SendMesg(ctx context.Context, mesg Mesg, path Path) error {
	if err := x.usable(); err != nil {
		return err
	}

	var deliveries []delivery
	var held []NodeRef
	err := x.registry.With(func(reg *nodeTable) error {
		e, ok := x.lookup(*reg, path)
		if !ok {
			return fmt.Errorf("send %q: %w", path, ErrNodeNotFound)
		}

		var subs []target
		if err := e.ref.With(func(n *Node) error {
			deliveries = append(deliveries, delivery{at: n.path, hooks: n.hooks()})
			subs = n.subscribers()
			return nil
		}); err != nil {
			return err
		}

		seen := map[uuid.UUID]struct{}{e.id: {}}
		for _, sub := range subs {
			held = append(held, sub.ref)
			if _, dup := seen[sub.id]; dup {
				continue
			}
			seen[sub.id] = struct{}{}
			if err := sub.ref.With(func(n *Node) error {
				deliveries = append(deliveries, delivery{at: n.path, hooks: n.hooks()})
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	for _, ref := range held {
		ref.Release()
	}
	if err != nil {
		return x.check("send", err)
	}

	for _, d := range deliveries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("send %q: %w", path, err)
		}
		for _, hook := range d.hooks {
			hook.OnMesg(ctx, d.at, mesg)
		}
		for _, hook := range x.observers {
			if hook != nil {
				hook.OnMesg(ctx, d.at, mesg)
			}
		}
	}
	return nil
}

// Send wraps data in a new message addressed to path and sends it.
func (x *Exchange) Send(ctx context.Context, path Path, data Payload) (Mesg, error) {
	mesg := NewMesg(path, data)
	return mesg, x.SendMesg(ctx, mesg, path)
}

// Listen attaches hook to the node at path. The hook receives every message
// delivered to the node until the listener is closed or the node is deleted.
func (x *Exchange) Listen(path Path, hook Hook) (Listener, error) {
	if err := x.usable(); err != nil {
		return nil, err
	}
	if hook == nil {
		return nil, ErrHookRequired
	}

	l := &listener{id: uuidx.NewString(), path: path, x: x}
	err := x.registry.With(func(reg *nodeTable) error {
		e, ok := x.lookup(*reg, path)
		if !ok {
			return fmt.Errorf("listen %q: %w", path, ErrNodeNotFound)
		}
		l.node = e.ref.Downgrade()
		return e.ref.WithMut(func(n *Node) error {
			n.listen(l.id, hook)
			return nil
		})
	})
	if err != nil {
		return nil, x.check("listen", err)
	}
	return l, nil
}

type listener struct {
	id        string
	path      Path
	node      ownership.Weak[Node]
	x         *Exchange
	closeOnce sync.Once
	err       error
}

func (l *listener) ID() string { return l.id }
func (l *listener) Path() Path { return l.path }

func (l *listener) Close() error {
	l.closeOnce.Do(func() {
		ref, ok := l.node.Upgrade()
		if !ok {
			return
		}
		defer ref.Release()
		l.err = l.x.check("unlisten", ref.WithMut(func(n *Node) error {
			n.unlisten(l.id)
			return nil
		}))
	})
	return l.err
}

// Paths returns every registered path in lexicographic order. The root is not
// included.
func (x *Exchange) Paths() ([]Path, error) {
	if err := x.usable(); err != nil {
		return nil, err
	}
	var paths []Path
	err := x.registry.With(func(reg *nodeTable) error {
		for _, name := range (*reg).Names() {
			paths = append(paths, NewPath(name))
		}
		return nil
	})
	if err != nil {
		return nil, x.check("paths", err)
	}
	return paths, nil
}

// Describe returns a snapshot of the node at path.
func (x *Exchange) Describe(path Path) (NodeInfo, error) {
	if err := x.usable(); err != nil {
		return NodeInfo{}, err
	}
	var info NodeInfo
	err := x.registry.With(func(reg *nodeTable) error {
		e, ok := x.lookup(*reg, path)
		if !ok {
			return fmt.Errorf("describe %q: %w", path, ErrNodeNotFound)
		}
		return e.ref.With(func(n *Node) error {
			info = n.info()
			return nil
		})
	})
	if err != nil {
		return NodeInfo{}, x.check("describe", err)
	}
	return info, nil
}

// Subscribers returns the paths subscribed to the node at path, in the order
// they subscribed.
func (x *Exchange) Subscribers(path Path) ([]Path, error) {
	info, err := x.Describe(path)
	if err != nil {
		return nil, err
	}
	var subs []Path
	for _, link := range info.Links {
		if link.Relationship == Subscriber {
			subs = append(subs, link.Target)
		}
	}
	return subs, nil
}

// Close deregisters every node and releases the exchange's handles. Handles
// held by callers stay valid. Every later operation returns ErrClosed.
func (x *Exchange) Close() error {
	if x.state.Swap(stateClosed) == stateClosed {
		return nil
	}

	var errs []error
	var entries []entry
	if err := x.registry.WithMut(func(reg *nodeTable) error {
		for _, name := range (*reg).Names() {
			if e, ok := (*reg).Del(name); ok {
				entries = append(entries, e)
			}
		}
		return nil
	}); err != nil {
		errs = append(errs, err)
	}
	entries = append(entries, x.root)

	var released []Link
	for _, e := range entries {
		if err := e.ref.WithMut(func(n *Node) error {
			released = append(released, n.detach()...)
			return nil
		}); err != nil {
			errs = append(errs, err)
		}
	}
	for _, link := range released {
		link.release()
	}
	for _, e := range entries {
		e.ref.Release()
	}
	x.registry.Release()
	return errors.Join(errs...)
}

// entries returns the root followed by every registered node, in path order.
func (x *Exchange) entries(reg nodeTable) []entry {
	names := reg.Names()
	all := make([]entry, 0, len(names)+1)
	all = append(all, x.root)
	for _, name := range names {
		if e, ok := reg.Get(name); ok {
			all = append(all, e)
		}
	}
	return all
}

func (x *Exchange) lookup(reg nodeTable, path Path) (entry, bool) {
	if path.IsRoot() {
		return x.root, true
	}
	return reg.Get(path.String())
}

func (x *Exchange) checkPath(path Path) error {
	if !x.strictPaths {
		return nil
	}
	return path.Validate()
}

func (x *Exchange) usable() error {
	switch x.state.Load() {
	case statePoisoned:
		return ErrConcurrencyFailure
	case stateClosed:
		return ErrClosed
	}
	return nil
}

// check records a concurrency failure as fatal for the exchange.
func (x *Exchange) check(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ownership.ErrConcurrencyFailure):
		if x.state.CompareAndSwap(stateOpen, statePoisoned) {
			x.logger.Error("exchange poisoned", slog.String("op", op), slogx.Error(err))
		}
	case errors.Is(err, ownership.ErrReleased) && x.state.Load() == stateClosed:
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}
	return err
}
