package ownership

type exclusiveCell[T any] struct {
	value  T
	owners int
}

type exclusiveRef[T any] struct {
	cell     *exclusiveCell[T]
	released bool
}

func newExclusive[T any](value T) *exclusiveRef[T] {
	return &exclusiveRef[T]{cell: &exclusiveCell[T]{value: value, owners: 1}}
}

func (r *exclusiveRef[T]) Mode() Mode { return Exclusive }

func (r *exclusiveRef[T]) Clone() Ref[T] {
	if r.released || r.cell.owners == 0 {
		return &exclusiveRef[T]{cell: r.cell, released: true}
	}
	r.cell.owners++
	return &exclusiveRef[T]{cell: r.cell}
}

func (r *exclusiveRef[T]) With(fn func(*T) error) error {
	return r.access(fn)
}

func (r *exclusiveRef[T]) WithMut(fn func(*T) error) error {
	return r.access(fn)
}

func (r *exclusiveRef[T]) access(fn func(*T) error) error {
	if r.released || r.cell.owners == 0 {
		return ErrReleased
	}
	return fn(&r.cell.value)
}

func (r *exclusiveRef[T]) Downgrade() Weak[T] {
	return exclusiveWeak[T]{cell: r.cell}
}

func (r *exclusiveRef[T]) Release() {
	if r.released {
		return
	}
	r.released = true
	r.cell.owners--
	if r.cell.owners > 0 {
		return
	}
	value := r.cell.value
	var zero T
	r.cell.value = zero
	drop(&value)
}

func (r *exclusiveRef[T]) Owners() int {
	return r.cell.owners
}

type exclusiveWeak[T any] struct {
	cell *exclusiveCell[T]
}

func (w exclusiveWeak[T]) Upgrade() (Ref[T], bool) {
	if w.cell == nil || w.cell.owners == 0 {
		return nil, false
	}
	w.cell.owners++
	return &exclusiveRef[T]{cell: w.cell}, true
}
