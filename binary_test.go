package crepedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotValueRoundTrip(t *testing.T) {
	b := encodeSnapshotValue(7, 3)
	version, parent, err := decodeSnapshotValue(b)
	require.NoError(t, err)
	assert.Equal(t, Version(7), version)
	assert.Equal(t, SnapshotId(3), parent)
}

func TestVersionedKeyOrdering(t *testing.T) {
	// Big-endian encoding of version/snapshot must preserve numeric order
	// lexicographically: this is the property the reverse scan depends on.
	lower := versionedKey([]byte("k"), 1, 5)
	higher := versionedKey([]byte("k"), 2, 0)
	assert.Less(t, string(lower), string(higher))

	sameVersionLower := versionedKey([]byte("k"), 1, 1)
	sameVersionHigher := versionedKey([]byte("k"), 1, 2)
	assert.Less(t, string(sameVersionLower), string(sameVersionHigher))
}

func TestDecodeVersionedKeyRoundTrip(t *testing.T) {
	key := versionedKey([]byte("user-key"), 42, 99)
	version, snapshot, err := decodeVersionedKey(key, len("user-key"))
	require.NoError(t, err)
	assert.Equal(t, Version(42), version)
	assert.Equal(t, SnapshotId(99), snapshot)
}

func TestDataOpEncodeDecode(t *testing.T) {
	set := SetOp([]byte("hello"))
	decodedSet, err := DecodeDataOp(set.Encode())
	require.NoError(t, err)
	assert.False(t, decodedSet.IsDelete)
	assert.Equal(t, []byte("hello"), decodedSet.Value)

	del := DeleteOp()
	decodedDel, err := DecodeDataOp(del.Encode())
	require.NoError(t, err)
	assert.True(t, decodedDel.IsDelete)
}

func TestDecodeDataOpRejectsEmpty(t *testing.T) {
	_, err := DecodeDataOp(nil)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrMissingDataOpFlag))
}

func TestDecodeDataOpRejectsUnknownTag(t *testing.T) {
	_, err := DecodeDataOp([]byte{0xAB})
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrUnexpectedDataOpType))
}

func TestBitLength64(t *testing.T) {
	cases := map[uint64]uint32{
		0:  0,
		1:  1,
		2:  2,
		3:  2,
		4:  3,
		7:  3,
		8:  4,
		11: 4,
	}
	for v, want := range cases {
		assert.Equal(t, want, bitLength64(v), "bitLength64(%d)", v)
	}
}

func TestFloorLog2(t *testing.T) {
	cases := map[uint64]uint32{
		1: 0,
		2: 1,
		3: 1,
		4: 2,
		7: 2,
		8: 3,
	}
	for v, want := range cases {
		assert.Equal(t, want, floorLog2(v), "floorLog2(%d)", v)
	}
}
