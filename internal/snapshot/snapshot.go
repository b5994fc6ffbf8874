// Package snapshot exports and restores the whole ledger store as a single
// checksummed, zstd-compressed FlatBuffers container.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/storage"
	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/types"
)

// formatVersion is the current snapshot format version.
const formatVersion = 1

var (
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrUnsupported      = errors.New("unsupported snapshot version")
)

// Info describes a snapshot.
type Info struct {
	Version   uint32
	Slot      uint64
	CreatedAt int64
	Entries   int
}

// entry is one key-value pair of the store.
type entry struct {
	key   []byte
	value []byte
}

// Create builds an uncompressed snapshot of every record in db.
func Create(db *storage.Storage, slot uint64, createdAt int64) ([]byte, error) {
	entries, err := collect(db)
	if err != nil {
		return nil, fmt.Errorf("collect entries:\n%w", err)
	}

	return build(formatVersion, slot, createdAt, entries), nil
}

// collect copies every key-value pair out of db in key order.
func collect(db *storage.Storage) ([]entry, error) {
	var entries []entry

	err := db.IteratePrefix(nil, func(key, value []byte) error {
		entries = append(entries, entry{
			key:   bytes.Clone(key),
			value: bytes.Clone(value),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// build encodes the FlatBuffers container with its checksum.
func build(version uint32, slot uint64, createdAt int64, entries []entry) []byte {
	sortEntries(entries)
	checksum := computeChecksum(version, slot, createdAt, entries)

	builder := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		keyOffset := builder.CreateByteVector(e.key)
		valueOffset := builder.CreateByteVector(e.value)

		types.SnapshotEntryStart(builder)
		types.SnapshotEntryAddKey(builder, keyOffset)
		types.SnapshotEntryAddValue(builder, valueOffset)
		offsets[i] = types.SnapshotEntryEnd(builder)
	}

	types.SnapshotStartEntriesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entriesVector := builder.EndVector(len(offsets))

	checksumOffset := builder.CreateByteVector(checksum[:])

	types.SnapshotStart(builder)
	types.SnapshotAddVersion(builder, version)
	types.SnapshotAddSlot(builder, slot)
	types.SnapshotAddCreatedAt(builder, createdAt)
	types.SnapshotAddEntries(builder, entriesVector)
	types.SnapshotAddChecksum(builder, checksumOffset)
	builder.Finish(types.SnapshotEnd(builder))

	return builder.FinishedBytes()
}

func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})
}

// computeChecksum hashes the canonical snapshot content.
// Format: version (4 bytes) + slot (8 bytes) + created_at (8 bytes) +
// for each entry: u32 key_len + key + u32 value_len + value
func computeChecksum(version uint32, slot uint64, createdAt int64, entries []entry) [32]byte {
	hasher := blake3.New()

	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], version)
	hasher.Write(buf[:4])

	binary.BigEndian.PutUint64(buf[:], slot)
	hasher.Write(buf[:])

	binary.BigEndian.PutUint64(buf[:], uint64(createdAt))
	hasher.Write(buf[:])

	for _, e := range entries {
		binary.BigEndian.PutUint32(buf[:4], uint32(len(e.key)))
		hasher.Write(buf[:4])
		hasher.Write(e.key)

		binary.BigEndian.PutUint32(buf[:4], uint32(len(e.value)))
		hasher.Write(buf[:4])
		hasher.Write(e.value)
	}

	var checksum [32]byte
	hasher.Sum(checksum[:0])

	return checksum
}

// Inspect verifies a snapshot and returns its header.
func Inspect(data []byte) (Info, error) {
	info, _, err := decode(data)
	return info, err
}

// decode parses and verifies a snapshot.
func decode(data []byte) (info Info, entries []entry, err error) {
	// A FlatBuffers root offset plus a vtable needs at least 8 bytes
	if len(data) < 8 {
		return Info{}, nil, fmt.Errorf("snapshot too short: %d bytes", len(data))
	}

	// Malformed offsets make the generated accessors index out of range
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed snapshot: %v", r)
		}
	}()

	snap := types.GetRootAsSnapshot(data, 0)

	if snap.Version() != formatVersion {
		return Info{}, nil, fmt.Errorf("%w: %d", ErrUnsupported, snap.Version())
	}

	entries = make([]entry, snap.EntriesLength())
	var e types.SnapshotEntry

	for i := range entries {
		if !snap.Entries(&e, i) {
			return Info{}, nil, fmt.Errorf("read entry %d", i)
		}

		entries[i] = entry{
			key:   bytes.Clone(e.KeyBytes()),
			value: bytes.Clone(e.ValueBytes()),
		}
	}

	sortEntries(entries)
	computed := computeChecksum(snap.Version(), snap.Slot(), snap.CreatedAt(), entries)

	if !bytes.Equal(computed[:], snap.ChecksumBytes()) {
		return Info{}, nil, ErrChecksumMismatch
	}

	info = Info{
		Version:   snap.Version(),
		Slot:      snap.Slot(),
		CreatedAt: snap.CreatedAt(),
		Entries:   len(entries),
	}

	return info, entries, nil
}

// Apply verifies a snapshot and makes db hold exactly its records.
// Records absent from the snapshot are deleted in the same atomic batch.
func Apply(db *storage.Storage, data []byte) (Info, error) {
	info, entries, err := decode(data)
	if err != nil {
		return Info{}, fmt.Errorf("verify snapshot:\n%w", err)
	}

	keep := make(map[string]struct{}, len(entries))
	writes := make([]storage.Write, 0, len(entries))

	for _, e := range entries {
		keep[string(e.key)] = struct{}{}
		writes = append(writes, storage.Write{Key: e.key, Value: e.value})
	}

	err = db.IteratePrefix(nil, func(key, _ []byte) error {
		if _, ok := keep[string(key)]; !ok {
			writes = append(writes, storage.Write{Key: bytes.Clone(key), Delete: true})
		}

		return nil
	})
	if err != nil {
		return Info{}, fmt.Errorf("scan store:\n%w", err)
	}

	if err := db.Apply(writes); err != nil {
		return Info{}, fmt.Errorf("write entries:\n%w", err)
	}

	return info, nil
}

// Compress compresses snapshot data using zstd.
func Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses zstd-compressed snapshot data.
func Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}
