package party

import (
	"encoding/binary"
	"io"
	"sort"
)

// IDSlice is a sorted slice of IDs.
type IDSlice []ID

// NewIDSlice returns a sorted copy of the given IDs.
func NewIDSlice(ids []ID) IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Valid returns true if the slice is sorted and contains no duplicates.
func (ids IDSlice) Valid() bool {
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			return false
		}
	}
	return true
}

// Search returns the index of x in ids, and whether it is present.
func (ids IDSlice) Search(x ID) (int, bool) {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= x })
	if i < len(ids) && ids[i] == x {
		return i, true
	}
	return 0, false
}

// Contains returns true if ids contains all the given IDs.
func (ids IDSlice) Contains(idsToCheck ...ID) bool {
	for _, id := range idsToCheck {
		if _, ok := ids.Search(id); !ok {
			return false
		}
	}
	return true
}

// GetIndex returns the index of id in ids, or -1 if it is not present.
func (ids IDSlice) GetIndex(id ID) int {
	if i, ok := ids.Search(id); ok {
		return i
	}
	return -1
}

// Remove returns a copy of ids with the given ID removed.
func (ids IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(ids))
	for _, other := range ids {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

// Copy returns an identical copy of the slice.
func (ids IDSlice) Copy() IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	return out
}

// WriteTo implements io.WriterTo interface.
func (ids IDSlice) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 2+2*len(ids))
	binary.BigEndian.PutUint16(buf, uint16(len(ids)))
	for i, id := range ids {
		binary.BigEndian.PutUint16(buf[2+2*i:], uint16(id))
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// Domain implements hash.WriterToWithDomain.
func (IDSlice) Domain() string {
	return "IDSlice"
}
