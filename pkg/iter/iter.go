package iter

type Iterator[A any] interface {
	// Next advances the iterator and returns true if another value was found.
	Next() bool

	// At returns the value at the current iterator position.
	At() A

	// Err returns the last error of the iterator.
	Err() error

	Close() error
}

type sliceIterator[A any] struct {
	list []A
	cur  A
}

func NewSliceIterator[A any](s []A) Iterator[A] {
	return &sliceIterator[A]{
		list: s,
	}
}

func (i *sliceIterator[A]) Err() error {
	return nil
}

func (i *sliceIterator[A]) Next() bool {
	if len(i.list) > 0 {
		i.cur = i.list[0]
		i.list = i.list[1:]
		return true
	}
	var a A
	i.cur = a
	return false
}

func (i *sliceIterator[A]) At() A {
	return i.cur
}

func (i *sliceIterator[A]) Close() error {
	return nil
}

// Slice drains the iterator into a slice and closes it.
func Slice[A any](it Iterator[A]) ([]A, error) {
	var result []A
	for it.Next() {
		result = append(result, it.At())
	}
	if err := it.Err(); err != nil {
		_ = it.Close()
		return nil, err
	}
	return result, it.Close()
}

// ForEach calls fn for every value of the iterator and closes it.
// Iteration stops at the first error returned by fn.
func ForEach[A any](it Iterator[A], fn func(A) error) error {
	defer it.Close()
	for it.Next() {
		if err := fn(it.At()); err != nil {
			return err
		}
	}
	return it.Err()
}
