package diskstore

import (
	"bytes"
	"fmt"
	"sort"
)

// An in-memory bucket, used for tests and temporary indices. Keys are kept in
// a map and sorted on scan, which is plenty for the sizes tests use.
type memBucket struct {
	isReadOnly bool
	data       map[string][]byte
}

func NewMemBucket(readOnly bool) Bucket {
	return memBucket{isReadOnly: readOnly, data: make(map[string][]byte)}
}

func (b memBucket) IsReadOnly() bool {
	return b.isReadOnly
}

func (b memBucket) Get(k []byte) []byte {
	return b.data[string(k)]
}

func (b memBucket) Put(k, v []byte) error {
	if b.isReadOnly {
		return fmt.Errorf("cannot put into read-only memory bucket")
	}
	// Copy the value, callers may reuse their buffers after Put like they can
	// with a real store.
	vc := make([]byte, len(v))
	copy(vc, v)
	b.data[string(k)] = vc
	return nil
}

func (b memBucket) Delete(k []byte) error {
	if b.isReadOnly {
		return fmt.Errorf("cannot delete from read-only memory bucket")
	}
	delete(b.data, string(k))
	return nil
}

func (b memBucket) ForEach(f func(k, v []byte) error) error {
	for k, v := range b.data {
		if err := f([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func (b memBucket) sortedKeys() []string {
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b memBucket) PrefixScan(prefix []byte, f func(k, v []byte) error) error {
	for _, k := range b.sortedKeys() {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if err := f([]byte(k), b.data[k]); err != nil {
			return err
		}
	}
	return nil
}

func (b memBucket) RangeScan(start, end []byte, inclusive bool, f func(k, v []byte) error) error {
	for _, ks := range b.sortedKeys() {
		k := []byte(ks)
		if start != nil {
			cmp := bytes.Compare(k, start)
			if cmp < 0 || (!inclusive && cmp == 0) {
				continue
			}
		}
		if end != nil {
			cmp := bytes.Compare(k, end)
			if cmp > 0 || (!inclusive && cmp == 0) {
				break
			}
		}
		if err := f(k, b.data[ks]); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------

type memBucketManager struct {
	isReadOnly bool
	buckets    map[string]memBucket
}

func (bm memBucketManager) Get(bucketName string) (Bucket, error) {
	if b, ok := bm.buckets[bucketName]; ok {
		return memBucket{isReadOnly: bm.isReadOnly, data: b.data}, nil
	}
	if bm.isReadOnly {
		return emptyReadOnlyBucket{}, nil
	}
	b := memBucket{data: make(map[string][]byte)}
	bm.buckets[bucketName] = b
	return b, nil
}

func (bm memBucketManager) Delete(bucketName string) error {
	if bm.isReadOnly {
		return fmt.Errorf("cannot delete bucket %s in read-only transaction", bucketName)
	}
	delete(bm.buckets, bucketName)
	return nil
}

// ---------------------------

type memDiskStore struct {
	buckets map[string]memBucket
}

func newMemDiskStore() *memDiskStore {
	return &memDiskStore{buckets: make(map[string]memBucket)}
}

func (ds *memDiskStore) Path() string {
	return "memory"
}

func (ds *memDiskStore) Read(f func(BucketManager) error) error {
	return f(memBucketManager{isReadOnly: true, buckets: ds.buckets})
}

func (ds *memDiskStore) Write(f func(BucketManager) error) error {
	return f(memBucketManager{buckets: ds.buckets})
}

func (ds *memDiskStore) BackupToFile(path string) error {
	return fmt.Errorf("not supported for memory store")
}

func (ds *memDiskStore) SizeInBytes() (int64, error) {
	var size int64
	for _, b := range ds.buckets {
		for k, v := range b.data {
			size += int64(len(k) + len(v))
		}
	}
	return size, nil
}

func (ds *memDiskStore) Close() error {
	clear(ds.buckets)
	return nil
}
