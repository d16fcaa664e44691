package collections

import (
	"errors"

	"github.com/cwsoftware123/cwd/core"
)

// Item is a single typed slot at a fixed key.
type Item[T any] struct {
	key   []byte
	codec Codec[T]
}

// NewItem builds an Item living at BuildKey(namespace, nil, nil).
func NewItem[T any](namespace string, codec Codec[T]) Item[T] {
	return Item[T]{key: BuildKey([]byte(namespace), nil, nil), codec: codec}
}

func (it Item[T]) Load(s Storage) (T, error) {
	var zero T
	b, err := s.Get(it.key)
	if err != nil {
		return zero, err
	}
	return it.codec.Decode(b)
}

// MayLoad returns (zero, false, nil) if the slot is unset, where Load
// would return an error.
func (it Item[T]) MayLoad(s Storage) (T, bool, error) {
	var zero T
	b, err := s.Get(it.key)
	if err != nil {
		if isNotFound(err) {
			return zero, false, nil
		}
		return zero, false, err
	}
	v, err := it.codec.Decode(b)
	return v, err == nil, err
}

func (it Item[T]) Save(s Storage, v T) error {
	b, err := it.codec.Encode(v)
	if err != nil {
		return err
	}
	s.Set(it.key, b)
	return nil
}

func (it Item[T]) Remove(s Storage) {
	s.Delete(it.key)
}

// Update loads the current value (zero value if unset), passes it to
// fn, and persists whatever fn returns.
func (it Item[T]) Update(s Storage, fn func(T) (T, error)) (T, error) {
	var zero T
	cur, ok, err := it.MayLoad(s)
	if err != nil {
		return zero, err
	}
	if !ok {
		cur = zero
	}
	next, err := fn(cur)
	if err != nil {
		return zero, err
	}
	if err := it.Save(s, next); err != nil {
		return zero, err
	}
	return next, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, core.ErrNotFound)
}
