package cache

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// File identifies one input of a cached computation
type File struct {
	Name string
	Data []byte
}

// ContentHash returns the hex BLAKE2b-256 digest of data
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key derives a stable identifier from a namespace and an ordered file set.
// The same names and contents in the same order always produce the same key.
func Key(namespace string, files []File) string {
	h, _ := blake2b.New256(nil)
	writeField(h, []byte(namespace))
	for _, f := range files {
		writeField(h, []byte(f.Name))
		sum := blake2b.Sum256(f.Data)
		writeField(h, sum[:])
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// writeField length-prefixes b so adjacent fields cannot run together
func writeField(w io.Writer, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	w.Write(n[:])
	w.Write(b)
}
