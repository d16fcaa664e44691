package collections

import (
	"encoding/binary"
	"fmt"
)

// Unsigned bounds the integer kinds Incrementor supports.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Incrementor is a single monotonically-incrementing counter backed by
// an Item. The first Increment on an uninitialized counter stores and
// returns zero, not one: absence means "never incremented", not
// "implicitly zero and now advanced".
type Incrementor[N Unsigned] struct {
	item Item[N]
}

func NewIncrementor[N Unsigned](namespace string) Incrementor[N] {
	return Incrementor[N]{item: NewItem[N](namespace, numCodec[N]{})}
}

func (c Incrementor[N]) Load(s Storage) (N, error) {
	return c.item.Load(s)
}

func (c Incrementor[N]) Initialize(s Storage) error {
	var zero N
	return c.item.Save(s, zero)
}

// Increment advances the counter by one unit and returns the value after
// incrementing.
func (c Incrementor[N]) Increment(s Storage) (N, error) {
	var next N
	cur, ok, err := c.item.MayLoad(s)
	if err != nil {
		return next, err
	}
	if ok {
		next = cur + 1
	}
	if err := c.item.Save(s, next); err != nil {
		return next, err
	}
	return next, nil
}

type numCodec[N Unsigned] struct{}

func (numCodec[N]) Encode(v N) ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b, nil
}

func (numCodec[N]) Decode(b []byte) (N, error) {
	var zero N
	if len(b) != 8 {
		return zero, fmt.Errorf("collections: incrementor: invalid encoded length %d", len(b))
	}
	return N(binary.BigEndian.Uint64(b)), nil
}
