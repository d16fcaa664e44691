package wasmvm

import (
	"encoding/binary"
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/cwsoftware123/cwd/core"
)

// Region is the guest/host memory-handoff ABI. Every byte buffer
// crossing the boundary is described by a 12-byte header (three
// little-endian uint32 fields) the guest allocates and the host reads
// or fills in place, rather than the host returning freshly allocated
// guest memory of its own.
type Region struct {
	Offset   uint32
	Capacity uint32
	Length   uint32
}

const regionSize = 12

func readRegionHeader(mem *wasmer.Memory, ptr uint32) (Region, error) {
	data := mem.Data()
	if uint64(ptr)+regionSize > uint64(len(data)) {
		return Region{}, fmt.Errorf("%w: region header out of bounds at %d", core.ErrHostImport, ptr)
	}
	b := data[ptr : ptr+regionSize]
	return Region{
		Offset:   binary.LittleEndian.Uint32(b[0:4]),
		Capacity: binary.LittleEndian.Uint32(b[4:8]),
		Length:   binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

func writeRegionHeader(mem *wasmer.Memory, ptr uint32, r Region) error {
	data := mem.Data()
	if uint64(ptr)+regionSize > uint64(len(data)) {
		return fmt.Errorf("%w: region header out of bounds at %d", core.ErrHostImport, ptr)
	}
	b := data[ptr : ptr+regionSize]
	binary.LittleEndian.PutUint32(b[0:4], r.Offset)
	binary.LittleEndian.PutUint32(b[4:8], r.Capacity)
	binary.LittleEndian.PutUint32(b[8:12], r.Length)
	return nil
}

// wipeRegion zeroes the data bytes of the region at ptr and resets its
// Length. The host wipes every guest-visible response buffer after
// reading it so a later call sharing the allocation can never observe a
// previous call's bytes.
func wipeRegion(mem *wasmer.Memory, ptr uint32) {
	r, err := readRegionHeader(mem, ptr)
	if err != nil {
		return
	}
	data := mem.Data()
	if uint64(r.Offset)+uint64(r.Length) > uint64(len(data)) {
		return
	}
	for i := r.Offset; i < r.Offset+r.Length; i++ {
		data[i] = 0
	}
	r.Length = 0
	_ = writeRegionHeader(mem, ptr, r)
}

// readRegionData reads the Region header at ptr, then copies out exactly
// Length bytes starting at Offset. The copy is defensive: the returned
// slice does not alias guest memory, which the guest may resize
// (invalidating the backing array) on its next allocation.
func readRegionData(mem *wasmer.Memory, ptr uint32) ([]byte, error) {
	r, err := readRegionHeader(mem, ptr)
	if err != nil {
		return nil, err
	}
	data := mem.Data()
	if uint64(r.Offset)+uint64(r.Length) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: region data out of bounds (offset %d, length %d)", core.ErrHostImport, r.Offset, r.Length)
	}
	out := make([]byte, r.Length)
	copy(out, data[r.Offset:r.Offset+r.Length])
	return out, nil
}

// writeRegionData writes payload into the guest-owned buffer described by
// the Region header at ptr, then updates the header's Length field. It
// returns core.ErrRegionTooSmall, writing nothing, if payload does not
// fit in the guest's declared Capacity — the guest is expected to retry
// with a larger allocation.
func writeRegionData(mem *wasmer.Memory, ptr uint32, payload []byte) error {
	r, err := readRegionHeader(mem, ptr)
	if err != nil {
		return err
	}
	if uint64(len(payload)) > uint64(r.Capacity) {
		return fmt.Errorf("%w: need %d, have %d", core.ErrRegionTooSmall, len(payload), r.Capacity)
	}
	data := mem.Data()
	if uint64(r.Offset)+uint64(len(payload)) > uint64(len(data)) {
		return fmt.Errorf("%w: region write out of bounds (offset %d, length %d)", core.ErrHostImport, r.Offset, len(payload))
	}
	copy(data[r.Offset:], payload)
	r.Length = uint32(len(payload))
	return writeRegionHeader(mem, ptr, r)
}
