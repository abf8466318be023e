package registry

import (
	"slices"

	"github.com/alphadose/haxmap"
)

// Registry maps names to values. Add never overwrites.
type Registry[T any] interface {
	Get(name string) (T, bool)
	// Add stores value under name and reports false when the name is taken.
	Add(name string, value T) bool
	Del(name string) (T, bool)
	// Names returns every registered name in lexicographic order.
	Names() []string
	Len() int
}

type registry[T any] struct {
	values *haxmap.Map[string, T]
}

func New[T any]() Registry[T] {
	return &registry[T]{
		values: haxmap.New[string, T](),
	}
}

func (r *registry[T]) Get(name string) (T, bool) {
	return r.values.Get(name)
}

func (r *registry[T]) Add(name string, value T) bool {
	_, loaded := r.values.GetOrSet(name, value)
	return !loaded
}

func (r *registry[T]) Del(name string) (T, bool) {
	value, ok := r.values.Get(name)
	if ok {
		r.values.Del(name)
	}
	return value, ok
}

func (r *registry[T]) Names() []string {
	names := make([]string, 0, r.values.Len())
	r.values.ForEach(func(name string, _ T) bool {
		names = append(names, name)
		return true
	})
	slices.Sort(names)
	return names
}

func (r *registry[T]) Len() int {
	return int(r.values.Len())
}
