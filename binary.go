package crepedb

import "encoding/binary"

// Fixed-width integer encodings. Version and SnapshotId segments that
// participate in key ordering are always big-endian; the skip-index level
// is little-endian since it never needs to sort against anything.

func putU64BE(dst []byte, v uint64) {
	binary.BigEndian.PutUint64(dst, v)
}

func u64BE(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, errWrongBytesLength(8)
	}
	return binary.BigEndian.Uint64(b), nil
}

func putU32LE(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}

func u32LE(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, errWrongBytesLength(4)
	}
	return binary.LittleEndian.Uint32(b), nil
}

func encodeSnapshotId(id SnapshotId) []byte {
	b := make([]byte, 8)
	putU64BE(b, uint64(id))
	return b
}

func decodeSnapshotId(b []byte) (SnapshotId, error) {
	v, err := u64BE(b)
	if err != nil {
		return 0, err
	}
	return SnapshotId(v), nil
}

func encodeVersion(v Version) []byte {
	b := make([]byte, 8)
	putU64BE(b, uint64(v))
	return b
}

func decodeVersion(b []byte) (Version, error) {
	v, err := u64BE(b)
	if err != nil {
		return 0, err
	}
	return Version(v), nil
}

// snapshotKey is the snapshot table's row key: be_u64(id).
func snapshotKey(id SnapshotId) []byte {
	return encodeSnapshotId(id)
}

// snapshotNextKey is the reserved all-ones key holding the allocator counter.
func snapshotNextKey() []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = 0xff
	}
	return b
}

// encodeSnapshotValue packs (version, parent) into the 16-byte snapshot row value.
func encodeSnapshotValue(version Version, parent SnapshotId) []byte {
	b := make([]byte, 16)
	putU64BE(b[0:8], uint64(version))
	putU64BE(b[8:16], uint64(parent))
	return b
}

func decodeSnapshotValue(b []byte) (Version, SnapshotId, error) {
	if len(b) < 16 {
		return 0, 0, errWrongBytesLength(16)
	}
	version, _ := u64BE(b[0:8])
	parent, _ := u64BE(b[8:16])
	return Version(version), SnapshotId(parent), nil
}

// skipIndexKey is be_u64(snapshot_id) ‖ le_u32(level).
func skipIndexKey(snapshot SnapshotId, level uint32) []byte {
	b := make([]byte, 12)
	putU64BE(b[0:8], uint64(snapshot))
	putU32LE(b[8:12], level)
	return b
}

// versionedKey is user_key ‖ be_u64(version) ‖ be_u64(snapshot_id).
func versionedKey(userKey []byte, version Version, snapshot SnapshotId) []byte {
	b := make([]byte, len(userKey)+16)
	n := copy(b, userKey)
	putU64BE(b[n:n+8], uint64(version))
	putU64BE(b[n+8:n+16], uint64(snapshot))
	return b
}

// decodeVersionedKey splits a versioned-table key back into (version, snapshot)
// given the known length of the user key prefix.
func decodeVersionedKey(key []byte, userKeyLen int) (Version, SnapshotId, error) {
	if len(key) < userKeyLen+16 {
		return 0, 0, errWrongBytesLength(userKeyLen + 16)
	}
	version, _ := u64BE(key[userKeyLen : userKeyLen+8])
	snapshot, _ := u64BE(key[userKeyLen+8 : userKeyLen+16])
	return Version(version), SnapshotId(snapshot), nil
}

// versionedRangeBounds builds the half-open composite range covering every
// (version, snapshot) entry ever written for userKey.
func versionedRangeBounds(userKey []byte) (begin, end []byte) {
	begin = versionedKey(userKey, 0, 0)
	end = versionedKey(userKey, Version(^uint64(0)), SnapshotId(^uint64(0)))
	// end must be exclusive and strictly greater than any real entry; since
	// ^uint64(0) is already the maximum representable version/snapshot, we
	// append a single extra byte to push the bound past the last possible
	// composite key without colliding with it.
	end = append(end, 0x00)
	return begin, end
}
