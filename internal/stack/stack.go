package stack

// Stack is a plain LIFO stack. The zero value is ready to use.
type Stack[T any] struct {
	items []T
}

func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}

func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	n := len(s.items)
	if n == 0 {
		return zero, false
	}
	v := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]

	// give memory back once the backing array is mostly slack
	if c := cap(s.items); c > 20 && c > len(s.items)*2 {
		s.items = append([]T(nil), s.items...)
	}
	return v, true
}

func (s *Stack[T]) Peek() (T, bool) {
	var zero T
	if n := len(s.items); n > 0 {
		return s.items[n-1], true
	}
	return zero, false
}

func (s *Stack[T]) Len() int {
	return len(s.items)
}
