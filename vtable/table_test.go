package vtable_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vectile/vectile/conversion"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/graph"
	"github.com/vectile/vectile/models"
	"github.com/vectile/vectile/vtable"
)

func memTable(t *testing.T, args ...string) *vtable.Table {
	store, err := diskstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	if len(args) == 0 {
		args = []string{"dimension=3"}
	}
	tbl, err := vtable.Create(store, "main", "vectors", args)
	require.NoError(t, err)
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func vecBlob(v ...float32) []byte {
	return conversion.Float32ToBytes(v)
}

// ---------------------------

func Test_CreateDefaults(t *testing.T) {
	tbl := memTable(t, "dimension=128")
	p := tbl.Parameters()
	require.Equal(t, 128, p.Dimension)
	require.Equal(t, models.DistanceEuclidean, p.Metric)
	require.Equal(t, models.DefaultMaxDegree, p.MaxDegree)
	require.Equal(t, models.DefaultSearchList, p.SearchList)
	require.Equal(t, float32(1.4), p.PruneAlpha)
}

func Test_CreateInvalidArgs(t *testing.T) {
	store, err := diskstore.Open("")
	require.NoError(t, err)
	defer store.Close()
	cases := []struct {
		name string
		args []string
	}{
		{"missing dimension", []string{"metric=cosine"}},
		{"unknown metric", []string{"dimension=3", "metric=manhattan"}},
		{"unknown option", []string{"dimension=3", "shards=4"}},
		{"reserved column", []string{"dimension=3", "vector TEXT"}},
		{"reserved hidden column", []string{"dimension=3", "search_list_size INTEGER"}},
		{"duplicate column", []string{"dimension=3", "a TEXT", "a REAL"}},
		{"bad column type", []string{"dimension=3", "a VARCHAR"}},
		{"bad identifier", []string{"dimension=3", "not-an-identifier TEXT"}},
		{"garbage", []string{"dimension=3", "a b c"}},
		{"alpha out of range", []string{"dimension=3", "prune_alpha=3.0"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := vtable.Create(store, "main", "bad", c.args)
			require.Error(t, err)
			require.Equal(t, models.CodeInvalid, models.ErrorCode(err))
		})
	}
	// Bad table identifier
	_, err = vtable.Create(store, "main", "no`table", []string{"dimension=3"})
	require.Equal(t, models.CodeInvalid, models.ErrorCode(err))
}

func Test_CreateDuplicate(t *testing.T) {
	store, err := diskstore.Open("")
	require.NoError(t, err)
	defer store.Close()
	_, err = vtable.Create(store, "main", "vectors", []string{"dimension=3"})
	require.NoError(t, err)
	_, err = vtable.Create(store, "main", "vectors", []string{"dimension=3"})
	require.Equal(t, models.CodeExists, models.ErrorCode(err))
}

func Test_InsertSearchDelete(t *testing.T) {
	tbl := memTable(t)
	for i := 1; i <= 10; i++ {
		require.NoError(t, tbl.Insert(uint64(i), vecBlob(float32(i), 0, 0), nil))
	}
	// ---------------------------
	results, err := tbl.Search(vecBlob(5, 0, 0), models.SearchOptions{K: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, uint64(5), results[0].RowId)
	require.Equal(t, float32(0), results[0].Distance)
	// ---------------------------
	require.NoError(t, tbl.Delete(5))
	results, err = tbl.Search(vecBlob(5, 0, 0), models.SearchOptions{K: 3})
	require.NoError(t, err)
	for _, r := range results {
		require.NotEqual(t, uint64(5), r.RowId)
	}
	// ---------------------------
	require.Equal(t, models.CodeNotFound, models.ErrorCode(tbl.Delete(5)))
}

func Test_InsertErrors(t *testing.T) {
	tbl := memTable(t)
	// Wrong blob length
	err := tbl.Insert(1, []byte{1, 2, 3}, nil)
	require.Equal(t, models.CodeDimension, models.ErrorCode(err))
	// ---------------------------
	require.NoError(t, tbl.Insert(1, vecBlob(1, 2, 3), nil))
	err = tbl.Insert(1, vecBlob(1, 2, 3), nil)
	require.Equal(t, models.CodeExists, models.ErrorCode(err))
	// Unknown scalar column
	err = tbl.Insert(2, vecBlob(1, 2, 3), map[string]any{"ghost": "boo"})
	require.Equal(t, models.CodeInvalid, models.ErrorCode(err))
}

func Test_ScalarColumnsAndFilters(t *testing.T) {
	tbl := memTable(t, "dimension=3", "title TEXT", "score INTEGER")
	for i := 1; i <= 10; i++ {
		scalars := map[string]any{"title": "doc", "score": i}
		if i%2 == 0 {
			scalars["title"] = "even"
		}
		require.NoError(t, tbl.Insert(uint64(i), vecBlob(float32(i), 0, 0), scalars))
	}
	// ---------------------------
	// Scalars come back with results
	results, err := tbl.Search(vecBlob(1, 0, 0), models.SearchOptions{K: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, models.TextValue("doc"), results[0].Scalars["title"])
	require.Equal(t, models.IntegerValue(1), results[0].Scalars["score"])
	// ---------------------------
	// Equality filter
	results, err = tbl.Search(vecBlob(1, 0, 0), models.SearchOptions{
		K: 10,
		Filters: []models.ScalarFilter{
			{Column: "title", Operator: models.OperatorEquals, Value: models.TextValue("even")},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		require.Equal(t, uint64(0), r.RowId%2)
	}
	// ---------------------------
	// Range filter
	results, err = tbl.Search(vecBlob(1, 0, 0), models.SearchOptions{
		K: 10,
		Filters: []models.ScalarFilter{
			{Column: "score", Operator: models.OperatorInRange, Value: models.IntegerValue(3), EndValue: models.IntegerValue(5)},
		},
	})
	require.NoError(t, err)
	for _, r := range results {
		require.GreaterOrEqual(t, r.Scalars["score"].Integer, int64(3))
		require.LessOrEqual(t, r.Scalars["score"].Integer, int64(5))
	}
	// ---------------------------
	// Unknown filter column
	_, err = tbl.Search(vecBlob(1, 0, 0), models.SearchOptions{
		K:       1,
		Filters: []models.ScalarFilter{{Column: "ghost", Operator: models.OperatorEquals}},
	})
	require.Equal(t, models.CodeInvalid, models.ErrorCode(err))
}

func Test_SearchOptions(t *testing.T) {
	tbl := memTable(t)
	for i := 1; i <= 20; i++ {
		require.NoError(t, tbl.Insert(uint64(i), vecBlob(float32(i), 0, 0), nil))
	}
	// k is mandatory
	_, err := tbl.Search(vecBlob(1, 0, 0), models.SearchOptions{})
	require.Equal(t, models.CodeInvalid, models.ErrorCode(err))
	// ---------------------------
	// LIMIT caps below k
	results, err := tbl.Search(vecBlob(1, 0, 0), models.SearchOptions{K: 10, Limit: 4})
	require.NoError(t, err)
	require.Len(t, results, 4)
	// ---------------------------
	// One-query search list override
	results, err = tbl.Search(vecBlob(1, 0, 0), models.SearchOptions{K: 5, SearchListSize: 25})
	require.NoError(t, err)
	require.Len(t, results, 5)
	require.Equal(t, models.DefaultSearchList, tbl.Parameters().SearchList)
}

func Test_PersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := diskstore.Open(path)
	require.NoError(t, err)
	// ---------------------------
	tbl, err := vtable.Create(store, "main", "vectors", []string{"dimension=4", "tag TEXT"})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))
	vectors := make(map[uint64][]float32)
	for i := 1; i <= 100; i++ {
		v := []float32{rng.Float32(), rng.Float32(), rng.Float32(), rng.Float32()}
		vectors[uint64(i)] = v
		require.NoError(t, tbl.Insert(uint64(i), conversion.Float32ToBytes(v), map[string]any{"tag": "t"}))
	}
	before, err := tbl.Search(conversion.Float32ToBytes(vectors[1]), models.SearchOptions{K: 5})
	require.NoError(t, err)
	require.NoError(t, tbl.Close())
	require.NoError(t, store.Close())
	// ---------------------------
	store, err = diskstore.Open(path)
	require.NoError(t, err)
	defer store.Close()
	tbl, err = vtable.Open(store, "main", "vectors")
	require.NoError(t, err)
	defer tbl.Close()
	require.Equal(t, 4, tbl.Parameters().Dimension)
	require.Equal(t, []models.ScalarColumn{{Name: "tag", Type: models.ColumnTypeText}}, tbl.Columns())
	// ---------------------------
	after, err := tbl.Search(conversion.Float32ToBytes(vectors[1]), models.SearchOptions{K: 5})
	require.NoError(t, err)
	require.Equal(t, uint64(1), after[0].RowId)
	require.Equal(t, float32(0), after[0].Distance)
	require.Equal(t, before, after)
}

func Test_OpenMissing(t *testing.T) {
	store, err := diskstore.Open("")
	require.NoError(t, err)
	defer store.Close()
	_, err = vtable.Open(store, "main", "ghost")
	require.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func Test_Drop(t *testing.T) {
	store, err := diskstore.Open("")
	require.NoError(t, err)
	defer store.Close()
	tbl, err := vtable.Create(store, "main", "vectors", []string{"dimension=3"})
	require.NoError(t, err)
	require.NoError(t, tbl.Insert(1, vecBlob(1, 2, 3), nil))
	require.NoError(t, tbl.Drop())
	// ---------------------------
	_, err = vtable.Open(store, "main", "vectors")
	require.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	// The name is free again
	_, err = vtable.Create(store, "main", "vectors", []string{"dimension=3"})
	require.NoError(t, err)
}

func Test_BatchThroughTable(t *testing.T) {
	tbl := memTable(t, "dimension=8")
	rng := rand.New(rand.NewSource(9))
	randBlob := func() []byte {
		v := make([]float32, 8)
		for i := range v {
			v[i] = rng.Float32()
		}
		return conversion.Float32ToBytes(v)
	}
	for i := 1; i <= 30; i++ {
		require.NoError(t, tbl.Insert(uint64(i), randBlob(), nil))
	}
	// ---------------------------
	require.NoError(t, tbl.BeginBatch(graph.BatchOwningCache|graph.BatchDeferredBackEdges))
	for i := 31; i <= 60; i++ {
		require.NoError(t, tbl.Insert(uint64(i), randBlob(), nil))
	}
	require.NoError(t, tbl.EndBatch())
	// ---------------------------
	require.Equal(t, models.CodeInvalid, models.ErrorCode(tbl.EndBatch()))
	results, err := tbl.Search(randBlob(), models.SearchOptions{K: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
}
