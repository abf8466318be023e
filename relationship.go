package swamp

import "fmt"

// Kind is the kind of a Relationship.
type Kind uint8

const (
	// KindParent is the kind of the Parent relationship.
	KindParent Kind = iota + 1
	// KindChild is the kind of the Child relationship.
	KindChild
	// KindSubscriber is the kind of the Subscriber relationship.
	KindSubscriber
	// KindOther is the kind of every relationship made with Other.
	KindOther
)

// Relationship types a directed link between two nodes.
//
// Relationships are comparable: two values are equal when they have the same
// kind and, for Other, the same tag.
type Relationship struct {
	kind Kind
	tag  string
}

var (
	// Parent points from a node to the node it was created under. At most one
	// per node, and it never keeps the parent alive.
	Parent = Relationship{kind: KindParent}
	// Child points from a node to a node created under it.
	Child = Relationship{kind: KindChild}
	// Subscriber points from a node to a node that receives its messages.
	Subscriber = Relationship{kind: KindSubscriber}
)

// Other returns an application defined relationship.
func Other(tag string) Relationship {
	return Relationship{kind: KindOther, tag: tag}
}

// Kind returns the kind of the relationship.
func (r Relationship) Kind() Kind {
	return r.kind
}

// Tag returns the tag given to Other, or the empty string for the built in
// relationships.
func (r Relationship) Tag() string {
	return r.tag
}

func (r Relationship) String() string {
	switch r.kind {
	case KindParent:
		return "parent"
	case KindChild:
		return "child"
	case KindSubscriber:
		return "subscriber"
	case KindOther:
		return fmt.Sprintf("other(%s)", r.tag)
	default:
		return "unknown"
	}
}
