// Package hash provides a wrapper for the BLAKE3 hash function, with
// domain separation suitable for protocol transcripts.
package hash

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Hash is the hash function we use for generating commitments, deriving
// session identifiers, and sampling transcript randomness.
//
// It wraps BLAKE3, and extends it to work with our data types.
type Hash struct {
	h *blake3.Hasher
}

// New creates a Hash struct where the internal state is initialized with
// the given data.
func New(initialData ...WriterToWithDomain) *Hash {
	hash := &Hash{h: blake3.New()}
	for _, d := range initialData {
		_ = hash.WriteAny(d)
	}
	return hash
}

// Digest returns a reader for the current output of the hash function.
//
// This reader provides an unbounded stream of pseudo-random bytes, which is
// convenient for sampling scalars from the transcript. Reading from the
// digest does not modify the underlying hash state.
func (hash *Hash) Digest() io.Reader {
	return hash.h.Digest()
}

// Sum returns a fixed size digest of the current hash state.
func (hash *Hash) Sum() []byte {
	out := make([]byte, DigestLengthBytes)
	_, _ = hash.h.Digest().Read(out)
	return out
}

// Write implements io.Writer.
func (hash *Hash) Write(data []byte) (int, error) {
	return hash.h.Write(data)
}

// WriteAny takes different data types and writes them to the hash state.
//
// Supported types are []byte, uint32, io.WriterTo, WriterToWithDomain, and
// encoding.BinaryMarshaler. Each write is framed with a length and, when
// available, a domain string, so that concatenation ambiguities do not arise.
func (hash *Hash) WriteAny(data ...interface{}) error {
	for _, d := range data {
		switch t := d.(type) {
		case []byte:
			hash.writeBytesWithDomain("bytes", t)
		case uint32:
			buf := make([]byte, 4)
			binary.BigEndian.PutUint32(buf, t)
			hash.writeBytesWithDomain("uint32", buf)
		case WriterToWithDomain:
			var buf writerBuffer
			if _, err := t.WriteTo(&buf); err != nil {
				return fmt.Errorf("hash.WriteAny: %s: %w", t.Domain(), err)
			}
			hash.writeBytesWithDomain(t.Domain(), buf.data)
		case encoding.BinaryMarshaler:
			bytes, err := t.MarshalBinary()
			if err != nil {
				return fmt.Errorf("hash.WriteAny: %T: %w", t, err)
			}
			hash.writeBytesWithDomain("BinaryMarshaler", bytes)
		case io.WriterTo:
			var buf writerBuffer
			if _, err := t.WriteTo(&buf); err != nil {
				return fmt.Errorf("hash.WriteAny: %T: %w", t, err)
			}
			hash.writeBytesWithDomain("WriterTo", buf.data)
		default:
			panic(fmt.Sprintf("hash.WriteAny: unsupported type %T", d))
		}
	}
	return nil
}

func (hash *Hash) writeBytesWithDomain(domain string, data []byte) {
	sizeBuf := make([]byte, 8)
	// start of a new item
	binary.BigEndian.PutUint64(sizeBuf, uint64(len(domain)))
	_, _ = hash.h.Write(sizeBuf)
	_, _ = hash.h.WriteString(domain)
	binary.BigEndian.PutUint64(sizeBuf, uint64(len(data)))
	_, _ = hash.h.Write(sizeBuf)
	_, _ = hash.h.Write(data)
}

// Clone returns a copy of the Hash in its current state.
func (hash *Hash) Clone() *Hash {
	return &Hash{h: hash.h.Clone()}
}

// Fork clones the hash state, and writes additional data to the fork.
//
// This is used to derive independent transcripts for sub-protocols, keyed
// by, say, a counter or a peer's ID.
func (hash *Hash) Fork(data ...interface{}) *Hash {
	forked := hash.Clone()
	_ = forked.WriteAny(data...)
	return forked
}

type writerBuffer struct {
	data []byte
}

func (b *writerBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}
