package bip32

import (
	"fmt"
	"strconv"
	"strings"
)

const hardenedBit = uint32(1 << 31)

// Path is a parsed BIP32 derivation path.
type Path struct {
	indices []uint32
}

// Hardened reports whether the index refers to a hardened child.
func Hardened(index uint32) bool {
	return index&hardenedBit != 0
}

func indexFrom(spec string) (uint32, error) {
	hardenedSuffix := "'"
	hardened := strings.HasSuffix(spec, hardenedSuffix)
	spec = strings.TrimSuffix(spec, hardenedSuffix)

	index, err := strconv.ParseUint(spec, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("bip32: invalid path component %q: %w", spec, err)
	}
	if hardened {
		return hardenedBit | uint32(index), nil
	}
	return uint32(index), nil
}

// PathFrom parses a derivation path such as "m/44'/0'/0'/0/2" or "0/2".
//
// Hardened components parse successfully, so that the caller can report them
// with a dedicated error when deriving.
func PathFrom(spec string) (Path, error) {
	var indices []uint32

	spec = strings.TrimPrefix(spec, "m/")
	spec = strings.TrimPrefix(spec, "M/")
	if spec == "" || spec == "m" || spec == "M" {
		return Path{}, nil
	}

	for _, s := range strings.Split(spec, "/") {
		h, err := indexFrom(s)
		if err != nil {
			return Path{}, err
		}
		indices = append(indices, h)
	}
	return Path{indices: indices}, nil
}

// Indices returns the path's child indices, root first.
func (p Path) Indices() []uint32 {
	return p.indices
}

// HasHardened reports whether any component of the path is hardened.
func (p Path) HasHardened() bool {
	for _, i := range p.indices {
		if Hardened(i) {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer.
func (p Path) String() string {
	parts := make([]string, 0, len(p.indices)+1)
	parts = append(parts, "m")
	for _, i := range p.indices {
		if Hardened(i) {
			parts = append(parts, fmt.Sprintf("%d'", i&^hardenedBit))
		} else {
			parts = append(parts, strconv.FormatUint(uint64(i), 10))
		}
	}
	return strings.Join(parts, "/")
}
