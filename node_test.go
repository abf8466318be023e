package swamp

import (
	"testing"

	"github.com/casualjim/swamp/ownership"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTarget(mode ownership.Mode, path string) target {
	n := newNode(NewPath(path), nil)
	return target{id: n.id, path: n.path, ref: ownership.New(mode, n)}
}

func TestNodeLinks(t *testing.T) {
	for _, mode := range []ownership.Mode{ownership.Exclusive, ownership.Shared} {
		t.Run(mode.String(), func(t *testing.T) {
			parent := newTestTarget(mode, "/a")
			sub := newTestTarget(mode, "/b")
			n := newNode(NewPath("/a/c"), &parent)

			t.Run("parent link is weak", func(t *testing.T) {
				assert.Equal(t, 1, parent.ref.Owners())
				link, ok := n.parent()
				require.True(t, ok)
				assert.Equal(t, parent.id, link.TargetID())
				assert.Equal(t, NewPath("/a"), link.TargetPath())
				assert.Equal(t, Parent, link.Relationship())
			})

			t.Run("subscriber links own their target", func(t *testing.T) {
				_, added := n.createLink(sub, Subscriber)
				assert.True(t, added)
				assert.Equal(t, 2, sub.ref.Owners())

				_, added = n.createLink(sub, Subscriber)
				assert.False(t, added)
				assert.Equal(t, 2, sub.ref.Owners())
			})

			t.Run("links keep insertion order", func(t *testing.T) {
				n.createLink(sub, Other("peer"))
				links := n.Links()
				require.Len(t, links, 3)
				assert.Equal(t, Parent, links[0].Relationship)
				assert.Equal(t, Subscriber, links[1].Relationship)
				assert.Equal(t, Other("peer"), links[2].Relationship)
			})

			t.Run("a new parent replaces the old one", func(t *testing.T) {
				other := newTestTarget(mode, "/z")
				replaced, added := n.createLink(other, Parent)
				assert.True(t, added)
				require.Len(t, replaced, 1)
				assert.Equal(t, parent.id, replaced[0].TargetID())

				link, ok := n.parent()
				require.True(t, ok)
				assert.Equal(t, other.id, link.TargetID())
			})

			t.Run("removing links to a target", func(t *testing.T) {
				removed := n.removeLinksTo(sub.id)
				assert.Len(t, removed, 2)
				for _, link := range removed {
					link.release()
				}
				assert.Equal(t, 1, sub.ref.Owners())
			})
		})
	}
}

func TestNodeSubscribers(t *testing.T) {
	sub := newTestTarget(ownership.Shared, "/s")
	n := newNode(NewPath("/n"), nil)
	n.createLink(sub, Subscriber)
	n.createLink(sub, Other("mirror"))

	subs := n.subscribers()
	require.Len(t, subs, 1)
	assert.Equal(t, sub.id, subs[0].id)
	assert.Equal(t, 4, sub.ref.Owners())
	subs[0].ref.Release()
	assert.Equal(t, 3, sub.ref.Owners())
}

func TestNodeDropReleasesLinks(t *testing.T) {
	sub := newTestTarget(ownership.Exclusive, "/s")
	ref := ownership.New(ownership.Exclusive, newNode(NewPath("/n"), nil))
	require.NoError(t, ref.WithMut(func(n *Node) error {
		n.createLink(sub, Subscriber)
		n.listen("l1", HookFunc(nil))
		return nil
	}))
	assert.Equal(t, 2, sub.ref.Owners())

	ref.Release()
	assert.Equal(t, 1, sub.ref.Owners())
}

func TestNodeDetach(t *testing.T) {
	sub := newTestTarget(ownership.Exclusive, "/s")
	n := newNode(NewPath("/n"), nil)
	n.createLink(sub, Subscriber)
	n.listen("l1", HookFunc(nil))
	n.listen("l2", HookFunc(nil))
	assert.Equal(t, 2, n.Listeners())
	assert.True(t, n.unlisten("l2"))
	assert.False(t, n.unlisten("l2"))

	links := n.detach()
	assert.Len(t, links, 1)
	assert.Empty(t, n.Links())
	assert.Zero(t, n.Listeners())
}
