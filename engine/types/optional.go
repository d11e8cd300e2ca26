package types

// Optional is a value that may be absent. The zero Optional is empty.
type Optional[T any] struct {
	value  T
	exists bool
}

func NewOptional[T any](value T) Optional[T] {
	return Optional[T]{value: value, exists: true}
}

func (o Optional[T]) Unpack() (T, bool) {
	return o.value, o.exists
}

func (o Optional[T]) Value() T {
	if !o.exists {
		panic("access value of empty Optional")
	}
	return o.value
}

func (o Optional[T]) Empty() bool {
	return !o.exists
}
