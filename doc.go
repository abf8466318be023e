/*
Package swamp provides an in-process message exchange over a graph of
addressable nodes.

An Exchange keeps a registry of nodes keyed by Path. Each node holds an ordered
list of typed links to other nodes:

  - Parent: the node it was created under. Parent links are weak and never keep
    a parent alive.
  - Child: a node created under it.
  - Subscriber: a node that receives every message sent to it.
  - Other: application defined links, recorded but never followed.

Sending a message to a path delivers it to the node at that path and to each of
its direct subscribers, exactly one hop. Delivery is observed through hooks
attached with Listen, or through exchange wide Observers.

# Ownership modes

Nodes are held through ownership.Ref handles. An exchange runs in one of two
modes, chosen at construction time:

	x := swamp.NewExclusive() // single goroutine, no locking
	y := swamp.NewShared()    // safe for concurrent use

Both modes expose the same operations with the same results. In Shared mode the
registry and every node sit behind their own read/write guard. Operations take
the registry guard first and hold at most one node guard at a time. Hooks run
after every guard is released and may call back into the exchange.

A callback that panics while holding a Shared guard poisons it. From then on
the exchange returns ErrConcurrencyFailure and must be rebuilt.

# Basic Usage

	x := swamp.NewShared()
	defer x.Close()

	_ = x.CreateNode(swamp.NewPath("/a"))
	_ = x.CreateNode(swamp.NewPath("/a/b"))
	_ = x.AddSubscription(swamp.NewPath("/a"), swamp.NewPath("/a/b"))

	l, _ := x.Listen(swamp.NewPath("/a/b"), swamp.HookFunc(func(ctx context.Context, at swamp.Path, m swamp.Mesg) {
		fmt.Println(at, m.Data)
	}))
	defer l.Close()

	_, _ = x.Send(ctx, swamp.NewPath("/a"), swamp.Text("hello"))

Paths are kept verbatim. The parent of a path is the text before its final
separator, so "/a" is a child of "" (the root) and "a" is a child of the root
as well. Use StrictPaths to reject paths that are not absolute or that contain
empty segments.
*/
package swamp
