package scheduler

// arena hands out sub-slices of one backing array sized up front, so the
// schedule owns a single allocation per element type.
type arena[T any] struct {
	buf []T
}

func newArena[T any](size int) *arena[T] {
	return &arena[T]{buf: make([]T, 0, size)}
}

// clone copies s into the arena. The result has its capacity clipped so
// appending to it never writes into a neighbour.
func (a *arena[T]) clone(s []T) []T {
	if len(s) == 0 {
		return nil
	}
	start := len(a.buf)
	a.buf = append(a.buf, s...)
	return a.buf[start:len(a.buf):len(a.buf)]
}
