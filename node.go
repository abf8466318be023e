package swamp

import (
	"github.com/casualjim/swamp/ownership"
	"github.com/casualjim/swamp/pkg/uuidx"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// NodeRef is a handle to a node, in the ownership mode of its exchange.
//
// Types that make up Node itself spell out ownership.Ref[Node]; an alias may
// not appear in its own recursive type on go1.23.
type NodeRef = ownership.Ref[Node]

// Node is an addressable entity with an ordered list of typed links to other
// nodes. Nodes are created through an Exchange, and are read or changed only
// through a NodeRef.
type Node struct {
	id        uuid.UUID
	path      Path
	links     *orderedmap.OrderedMap[linkKey, Link]
	listeners *orderedmap.OrderedMap[string, Hook]
}

type linkKey struct {
	target uuid.UUID
	rel    Relationship
}

// target identifies the node on the far end of a link. The id and path are
// captured up front so a link can be created without holding the target's
// guard.
type target struct {
	id   uuid.UUID
	path Path
	ref  ownership.Ref[Node]
}

// Link is a directed, typed edge held by its source node. A Parent link is
// weak, every other kind owns a handle to its target.
type Link struct {
	targetID   uuid.UUID
	targetPath Path
	rel        Relationship
	strong     ownership.Ref[Node]
	weak       ownership.Weak[Node]
}

// Relationship is the type of the link.
func (l Link) Relationship() Relationship { return l.rel }

// TargetPath is the path of the target node when the link was created.
func (l Link) TargetPath() Path { return l.targetPath }

// TargetID is the identity of the target node.
func (l Link) TargetID() uuid.UUID { return l.targetID }

// Target returns a new owning handle to the linked node. It reports false
// when the target of a weak link is gone.
func (l Link) Target() (ownership.Ref[Node], bool) {
	if l.strong != nil {
		return l.strong.Clone(), true
	}
	if l.weak != nil {
		return l.weak.Upgrade()
	}
	return nil, false
}

func (l Link) release() {
	if l.strong != nil {
		l.strong.Release()
	}
}

func newNode(path Path, parent *target) Node {
	n := Node{
		id:        uuidx.New(),
		path:      path,
		links:     orderedmap.New[linkKey, Link](),
		listeners: orderedmap.New[string, Hook](),
	}
	if parent != nil {
		n.createLink(*parent, Parent)
	}
	return n
}

func (n *Node) ID() uuid.UUID {
	return n.id
}

func (n *Node) Path() Path {
	return n.path
}

// Links returns a snapshot of the node's links in insertion order.
func (n *Node) Links() []LinkInfo {
	infos := make([]LinkInfo, 0, n.links.Len())
	for pair := n.links.Oldest(); pair != nil; pair = pair.Next() {
		infos = append(infos, LinkInfo{
			Target:       pair.Value.targetPath,
			TargetID:     pair.Value.targetID,
			Relationship: pair.Value.rel,
		})
	}
	return infos
}

// Listeners returns the number of hooks attached to the node.
func (n *Node) Listeners() int {
	return n.listeners.Len()
}

// createLink appends a link to t. An identical link is never added twice; a
// new Parent link replaces the previous one. Replaced links are returned so
// the caller can release them outside the guard.
func (n *Node) createLink(t target, rel Relationship) (replaced []Link, added bool) {
	key := linkKey{target: t.id, rel: rel}
	if _, ok := n.links.Get(key); ok {
		return nil, false
	}
	if rel == Parent {
		replaced = n.removeWhere(func(k linkKey) bool { return k.rel == Parent })
	}

	link := Link{targetID: t.id, targetPath: t.path, rel: rel}
	if rel == Parent {
		link.weak = t.ref.Downgrade()
	} else {
		link.strong = t.ref.Clone()
	}
	n.links.Set(key, link)
	return replaced, true
}

// removeLink drops the link to id with the given relationship, if present.
func (n *Node) removeLink(id uuid.UUID, rel Relationship) (Link, bool) {
	return n.links.Delete(linkKey{target: id, rel: rel})
}

// removeLinksTo drops every link pointing at id.
func (n *Node) removeLinksTo(id uuid.UUID) []Link {
	return n.removeWhere(func(k linkKey) bool { return k.target == id })
}

func (n *Node) removeWhere(match func(linkKey) bool) []Link {
	var keys []linkKey
	for pair := n.links.Oldest(); pair != nil; pair = pair.Next() {
		if match(pair.Key) {
			keys = append(keys, pair.Key)
		}
	}
	removed := make([]Link, 0, len(keys))
	for _, key := range keys {
		if link, ok := n.links.Delete(key); ok {
			removed = append(removed, link)
		}
	}
	return removed
}

// parent returns the node's Parent link.
func (n *Node) parent() (Link, bool) {
	for pair := n.links.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key.rel == Parent {
			return pair.Value, true
		}
	}
	return Link{}, false
}

// subscribers clones a handle for every live Subscriber link.
func (n *Node) subscribers() []target {
	var subs []target
	for pair := n.links.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key.rel != Subscriber {
			continue
		}
		if ref, ok := pair.Value.Target(); ok {
			subs = append(subs, target{id: pair.Value.targetID, path: pair.Value.targetPath, ref: ref})
		}
	}
	return subs
}

// detach removes every link and listener. Used when the node leaves its
// exchange.
func (n *Node) detach() []Link {
	n.listeners = orderedmap.New[string, Hook]()
	return n.removeWhere(func(linkKey) bool { return true })
}

func (n *Node) listen(id string, hook Hook) {
	n.listeners.Set(id, hook)
}

func (n *Node) unlisten(id string) bool {
	_, ok := n.listeners.Delete(id)
	return ok
}

func (n *Node) hooks() []Hook {
	hooks := make([]Hook, 0, n.listeners.Len())
	for pair := n.listeners.Oldest(); pair != nil; pair = pair.Next() {
		hooks = append(hooks, pair.Value)
	}
	return hooks
}

// Drop releases the handles the node owns through its links. It runs when
// the last handle to the node is released.
func (n *Node) Drop() {
	if n.links == nil {
		return
	}
	for _, link := range n.detach() {
		link.release()
	}
}

// LinkInfo describes one link of a node.
type LinkInfo struct {
	Target       Path
	TargetID     uuid.UUID
	Relationship Relationship
}

// NodeInfo is a snapshot of a node.
type NodeInfo struct {
	ID        uuid.UUID
	Path      Path
	Links     []LinkInfo
	Listeners int
}

func (n *Node) info() NodeInfo {
	return NodeInfo{
		ID:        n.id,
		Path:      n.path,
		Links:     n.Links(),
		Listeners: n.Listeners(),
	}
}
