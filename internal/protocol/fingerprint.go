package protocol

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Domain tags keep fingerprints of different kinds from colliding.
const (
	taskDomain     = "c-protocol/task/v1"
	metadataDomain = "c-protocol/metadata/v1"
)

// TaskFingerprint identifies a (work type, metadata, worker) submission.
// It is deterministic: the same inputs always give the same fingerprint.
func TaskFingerprint(t WorkType, metadata string, worker Identity) Hash {
	h := blake3.New()
	h.Write([]byte(taskDomain))
	h.Write([]byte{byte(t)})

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(metadata)))
	h.Write(lenBuf[:])
	h.Write([]byte(metadata))
	h.Write(worker[:])

	var out Hash
	h.Sum(out[:0])

	return out
}

// MetadataHash returns the digest stored in a WorkRecord for the claim metadata.
func MetadataHash(metadata string) Hash {
	h := blake3.New()
	h.Write([]byte(metadataDomain))
	h.Write([]byte(metadata))

	var out Hash
	h.Sum(out[:0])

	return out
}
