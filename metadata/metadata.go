// Package metadata persists per-index configuration and the user-defined
// scalar columns in their shadow tables.
package metadata

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vectile/vectile/conversion"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/models"
)

var configKey = []byte("config")

// Record is everything an index needs to reopen itself: the immutable
// creation parameters and the declared scalar columns.
type Record struct {
	Parameters models.IndexParameters `msgpack:"parameters"`
	Columns    []models.ScalarColumn  `msgpack:"columns"`
}

func WriteRecord(bucket diskstore.Bucket, rec Record) error {
	val, err := msgpack.Marshal(rec)
	if err != nil {
		return fmt.Errorf("could not encode metadata record: %w", err)
	}
	if err := bucket.Put(configKey, val); err != nil {
		return fmt.Errorf("%w: could not write metadata: %v", models.ErrIO, err)
	}
	return nil
}

// ReadRecord loads and sanity-checks the configuration. Out-of-range or
// unknown values mean the shadow table does not belong to this code and fail
// the open as corruption.
func ReadRecord(bucket diskstore.ReadOnlyBucket) (Record, error) {
	var rec Record
	val := bucket.Get(configKey)
	if val == nil {
		return rec, fmt.Errorf("%w: no metadata record", models.ErrNotFound)
	}
	if err := msgpack.Unmarshal(val, &rec); err != nil {
		return rec, fmt.Errorf("%w: undecodable metadata record: %v", models.ErrCorrupt, err)
	}
	// ---------------------------
	p := rec.Parameters
	if p.Dimension < 1 || p.Dimension > models.MaxDimension {
		return rec, fmt.Errorf("%w: stored dimension %d out of range", models.ErrCorrupt, p.Dimension)
	}
	if p.BlockSize < 0 || p.BlockSize > models.MaxBlockSize {
		return rec, fmt.Errorf("%w: stored block size %d out of range", models.ErrCorrupt, p.BlockSize)
	}
	switch p.Metric {
	case models.DistanceEuclidean, models.DistanceCosine, models.DistanceDot:
	default:
		return rec, fmt.Errorf("%w: stored metric %q unknown", models.ErrCorrupt, p.Metric)
	}
	for _, c := range rec.Columns {
		if err := c.Validate(); err != nil {
			return rec, fmt.Errorf("%w: stored column %s invalid: %v", models.ErrCorrupt, c.Name, err)
		}
	}
	return rec, nil
}

// ---------------------------

/* Scalar rows are stored per rowid in their own shadow table, keyed like
 * blocks so the two tables stay aligned. Values travel as a name to value
 * map because rows may omit columns. */

func PutScalarRow(bucket diskstore.Bucket, rowId uint64, values map[string]models.ScalarValue) error {
	val, err := msgpack.Marshal(values)
	if err != nil {
		return fmt.Errorf("could not encode scalar row %d: %w", rowId, err)
	}
	if err := bucket.Put(conversion.BlockKey(rowId), val); err != nil {
		return fmt.Errorf("%w: could not write scalar row %d: %v", models.ErrIO, rowId, err)
	}
	return nil
}

func GetScalarRow(bucket diskstore.ReadOnlyBucket, rowId uint64) (map[string]models.ScalarValue, error) {
	val := bucket.Get(conversion.BlockKey(rowId))
	if val == nil {
		return nil, nil
	}
	var values map[string]models.ScalarValue
	if err := msgpack.Unmarshal(val, &values); err != nil {
		return nil, fmt.Errorf("%w: undecodable scalar row %d: %v", models.ErrCorrupt, rowId, err)
	}
	return values, nil
}

func DeleteScalarRow(bucket diskstore.Bucket, rowId uint64) error {
	if err := bucket.Delete(conversion.BlockKey(rowId)); err != nil {
		return fmt.Errorf("%w: could not delete scalar row %d: %v", models.ErrIO, rowId, err)
	}
	return nil
}
