package crepedb

import "github.com/tiannian/crepedb/backend"

// versionedReader resolves "most recent write visible from a snapshot" over
// a single versioned user table — the read algorithm described in spec §4.4.
type versionedReader struct {
	table      backend.Table
	snapshots  *snapshotReader
	skip       *skipIndexReader
	snapshotId SnapshotId
	version    Version
}

// get returns the value visible from the reader's bound snapshot, or
// ok == false if the key was never set or was most recently deleted.
func (r *versionedReader) get(userKey []byte) (value []byte, ok bool, err error) {
	begin, end := versionedRangeBounds(userKey)
	rng, err := r.table.Range(begin, end)
	if err != nil {
		return nil, false, errBackend(err)
	}
	defer rng.Close()

	type candidate struct {
		w     Version
		sw    SnapshotId
		value []byte
	}
	var candidates []candidate
	for rng.Next() {
		w, sw, derr := decodeVersionedKey(rng.Key(), len(userKey))
		if derr != nil {
			return nil, false, derr
		}
		val := make([]byte, len(rng.Value()))
		copy(val, rng.Value())
		candidates = append(candidates, candidate{w: w, sw: sw, value: val})
	}
	if err := rng.Err(); err != nil {
		return nil, false, errBackend(err)
	}

	for i := len(candidates) - 1; i >= 0; i-- {
		c := candidates[i]
		if c.w > r.version {
			continue
		}
		matched, err := r.verifyAncestry(c.w, c.sw)
		if err != nil {
			return nil, false, err
		}
		if !matched {
			continue
		}
		op, err := DecodeDataOp(c.value)
		if err != nil {
			return nil, false, err
		}
		if op.IsDelete {
			return nil, false, nil
		}
		return op.Value, true, nil
	}
	return nil, false, nil
}

// verifyAncestry checks whether sw (a snapshot that wrote at version w) lies
// on the ancestor chain of the reader's bound snapshot at exactly version w.
func (r *versionedReader) verifyAncestry(w Version, sw SnapshotId) (bool, error) {
	t := r.version
	cur := r.snapshotId
	for t > w {
		if t-w == 1 {
			_, parent, err := r.snapshots.read(cur)
			if err != nil {
				return false, err
			}
			cur = parent
			t = w
			break
		}
		level := floorLog2(uint64(t - w))
		step := Version(1) << level
		next, ok, err := r.skip.read(cur, level)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		cur = next
		t -= step
	}
	return cur == sw && t == w, nil
}

// versionedWriter stages Set/Delete operations for a versioned table inside
// one write transaction, all tagged with the same (version, new snapshot id).
type versionedWriter struct {
	table      backend.WriteTable
	version    Version
	snapshotId SnapshotId
}

func (w *versionedWriter) set(userKey, value []byte) error {
	key := versionedKey(userKey, w.version, w.snapshotId)
	if err := w.table.Set(key, SetOp(value).Encode()); err != nil {
		return errBackend(err)
	}
	return nil
}

func (w *versionedWriter) del(userKey []byte) error {
	key := versionedKey(userKey, w.version, w.snapshotId)
	if err := w.table.Set(key, DeleteOp().Encode()); err != nil {
		return errBackend(err)
	}
	return nil
}
