// Package vtable is the virtual-table bridge: it translates the relational
// surface (CREATE / INSERT / DELETE / MATCH-k / DROP) into graph and shadow
// table operations against the host store.
package vtable

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vectile/vectile/conversion"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/graph"
	"github.com/vectile/vectile/metadata"
	"github.com/vectile/vectile/models"
)

const (
	suffixBlocks  = "blocks"
	suffixMeta    = "meta"
	suffixScalars = "scalars"
)

// Table is one open virtual table backed by a graph index and its shadow
// tables. It is single-threaded like everything below it; the host engine
// serialises statements.
type Table struct {
	schema  string
	name    string
	store   diskstore.DiskStore
	index   *graph.Index
	columns []models.ScalarColumn
	logger  zerolog.Logger
}

// qualifiedName flows both identifiers through the host quoting primitive,
// making injection through CREATE arguments structurally impossible.
func qualifiedName(schema, name string) string {
	return diskstore.QuoteIdentifier(schema) + "." + diskstore.QuoteIdentifier(name)
}

func (t *Table) bucketName(suffix string) string {
	return diskstore.ShadowTableName(qualifiedName(t.schema, t.name), suffix)
}

// wrap attaches the operation and index name the way the host expects its
// error messages.
func (t *Table) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s %s: %w", op, qualifiedName(t.schema, t.name), err)
}

func newTable(store diskstore.DiskStore, schema, name string, params models.IndexParameters, columns []models.ScalarColumn) (*Table, error) {
	index, err := graph.NewIndex(qualifiedName(schema, name), params)
	if err != nil {
		return nil, err
	}
	return &Table{
		schema:  schema,
		name:    name,
		store:   store,
		index:   index,
		columns: columns,
		logger:  log.With().Str("component", "vtable").Str("table", qualifiedName(schema, name)).Logger(),
	}, nil
}

// ---------------------------

// Create builds a new index and its shadow tables from CREATE VIRTUAL TABLE
// arguments.
func Create(store diskstore.DiskStore, schema, name string, args []string) (*Table, error) {
	if !models.IsValidIdentifier(schema) || !models.IsValidIdentifier(name) {
		return nil, fmt.Errorf("create: %w: index name %q.%q is not a valid identifier", models.ErrInvalid, schema, name)
	}
	params, columns, err := parseCreateArgs(args)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", qualifiedName(schema, name), err)
	}
	t, err := newTable(store, schema, name, params, columns)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", qualifiedName(schema, name), err)
	}
	// ---------------------------
	err = store.Write(func(bm diskstore.BucketManager) error {
		meta, err := bm.Get(t.bucketName(suffixMeta))
		if err != nil {
			return err
		}
		if _, err := metadata.ReadRecord(meta); err == nil {
			return fmt.Errorf("%w: index already created", models.ErrExists)
		}
		// Creating the blocks and scalars buckets up front keeps reopen
		// cheap and makes Drop symmetrical
		if _, err := bm.Get(t.bucketName(suffixBlocks)); err != nil {
			return err
		}
		if _, err := bm.Get(t.bucketName(suffixScalars)); err != nil {
			return err
		}
		return metadata.WriteRecord(meta, metadata.Record{Parameters: params, Columns: columns})
	})
	if err != nil {
		return nil, t.wrap("create", err)
	}
	t.logger.Info().Int("dimension", params.Dimension).Str("metric", params.Metric).Msg("Created index")
	return t, nil
}

// Open loads an existing index, sanity-checking its stored metadata.
func Open(store diskstore.DiskStore, schema, name string) (*Table, error) {
	if !models.IsValidIdentifier(schema) || !models.IsValidIdentifier(name) {
		return nil, fmt.Errorf("open: %w: index name %q.%q is not a valid identifier", models.ErrInvalid, schema, name)
	}
	var rec metadata.Record
	metaName := diskstore.ShadowTableName(qualifiedName(schema, name), suffixMeta)
	err := store.Read(func(bm diskstore.BucketManager) error {
		meta, err := bm.Get(metaName)
		if err != nil {
			return err
		}
		rec, err = metadata.ReadRecord(meta)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", qualifiedName(schema, name), err)
	}
	t, err := newTable(store, schema, name, rec.Parameters, rec.Columns)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", qualifiedName(schema, name), err)
	}
	return t, nil
}

// ---------------------------

func (t *Table) Name() string {
	return qualifiedName(t.schema, t.name)
}

func (t *Table) Parameters() models.IndexParameters {
	return t.index.Parameters()
}

func (t *Table) Columns() []models.ScalarColumn {
	return t.columns
}

// decodeVector checks the 4*D blob length contract and decodes.
func (t *Table) decodeVector(blob []byte) ([]float32, error) {
	want := 4 * t.index.Parameters().Dimension
	if len(blob) != want {
		return nil, fmt.Errorf("%w: vector blob is %d bytes, want %d", models.ErrDimension, len(blob), want)
	}
	return conversion.BytesToFloat32(blob), nil
}

// coerceScalars validates incoming column values against the declared
// columns.
func (t *Table) coerceScalars(scalars map[string]any) (map[string]models.ScalarValue, error) {
	if len(scalars) == 0 {
		return nil, nil
	}
	byName := make(map[string]models.ScalarColumn, len(t.columns))
	for _, c := range t.columns {
		byName[c.Name] = c
	}
	values := make(map[string]models.ScalarValue, len(scalars))
	for name, v := range scalars {
		col, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: no such column %q", models.ErrInvalid, name)
		}
		sv, err := models.CoerceScalar(col.Type, v)
		if err != nil {
			return nil, err
		}
		values[name] = sv
	}
	return values, nil
}

// Insert adds one row: the vector into the graph, the scalar values into
// their shadow table. Both land in one host transaction, so a phase-2
// failure inside the graph rolls the whole row back.
func (t *Table) Insert(rowId uint64, vectorBlob []byte, scalars map[string]any) error {
	vector, err := t.decodeVector(vectorBlob)
	if err != nil {
		return t.wrap("insert", err)
	}
	values, err := t.coerceScalars(scalars)
	if err != nil {
		return t.wrap("insert", err)
	}
	err = t.store.Write(func(bm diskstore.BucketManager) error {
		blocks, err := bm.Get(t.bucketName(suffixBlocks))
		if err != nil {
			return err
		}
		if err := t.index.Insert(blocks, rowId, vector); err != nil {
			return err
		}
		if values == nil {
			return nil
		}
		scalarBucket, err := bm.Get(t.bucketName(suffixScalars))
		if err != nil {
			return err
		}
		return metadata.PutScalarRow(scalarBucket, rowId, values)
	})
	return t.wrap("insert", err)
}

// Delete removes one row and its scalar values.
func (t *Table) Delete(rowId uint64) error {
	err := t.store.Write(func(bm diskstore.BucketManager) error {
		blocks, err := bm.Get(t.bucketName(suffixBlocks))
		if err != nil {
			return err
		}
		if err := t.index.Delete(blocks, rowId); err != nil {
			return err
		}
		scalarBucket, err := bm.Get(t.bucketName(suffixScalars))
		if err != nil {
			return err
		}
		return metadata.DeleteScalarRow(scalarBucket, rowId)
	})
	return t.wrap("delete", err)
}

// Search answers a MATCH query: beam search, then scalar row fetch, then
// post-search filtering, then the LIMIT cap. The search list override only
// applies to this one query.
func (t *Table) Search(vectorBlob []byte, opts models.SearchOptions) ([]models.SearchResult, error) {
	query, err := t.decodeVector(vectorBlob)
	if err != nil {
		return nil, t.wrap("search", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, t.wrap("search", err)
	}
	for _, f := range opts.Filters {
		if _, ok := t.columnByName(f.Column); !ok {
			return nil, t.wrap("search", fmt.Errorf("%w: no such column %q", models.ErrInvalid, f.Column))
		}
	}
	// ---------------------------
	var results []models.SearchResult
	err = t.store.Read(func(bm diskstore.BucketManager) error {
		blocks, err := bm.Get(t.bucketName(suffixBlocks))
		if err != nil {
			return err
		}
		results, err = t.index.Search(blocks, query, opts.K, opts.SearchListSize)
		if err != nil {
			return err
		}
		if len(t.columns) == 0 {
			return nil
		}
		// ---------------------------
		scalarBucket, err := bm.Get(t.bucketName(suffixScalars))
		if err != nil {
			return err
		}
		filtered := results[:0]
		for _, r := range results {
			r.Scalars, err = metadata.GetScalarRow(scalarBucket, r.RowId)
			if err != nil {
				return err
			}
			if t.matchesFilters(r, opts.Filters) {
				filtered = append(filtered, r)
			}
		}
		results = filtered
		return nil
	})
	if err != nil {
		return nil, t.wrap("search", err)
	}
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func (t *Table) columnByName(name string) (models.ScalarColumn, bool) {
	for _, c := range t.columns {
		if c.Name == name {
			return c, true
		}
	}
	return models.ScalarColumn{}, false
}

func (t *Table) matchesFilters(r models.SearchResult, filters []models.ScalarFilter) bool {
	for _, f := range filters {
		v, ok := r.Scalars[f.Column]
		if !ok {
			v = models.NullValue()
		}
		if !f.Matches(v) {
			return false
		}
	}
	return true
}

// ---------------------------

// BeginBatch opens a bulk-load bracket on the underlying index.
func (t *Table) BeginBatch(flags graph.BatchFlags) error {
	return t.wrap("begin_batch", t.index.BeginBatch(flags))
}

// EndBatch runs the deferred back-edge repair pass inside one host
// transaction and releases the batch resources.
func (t *Table) EndBatch() error {
	if !t.index.InBatch() {
		return t.wrap("end_batch", fmt.Errorf("%w: no batch open", models.ErrInvalid))
	}
	err := t.store.Write(func(bm diskstore.BucketManager) error {
		blocks, err := bm.Get(t.bucketName(suffixBlocks))
		if err != nil {
			return err
		}
		return t.index.EndBatch(blocks)
	})
	return t.wrap("end_batch", err)
}

// Index exposes the underlying graph index for tools and tests.
func (t *Table) Index() *graph.Index {
	return t.index
}

// ---------------------------

// Drop removes every shadow table of the index.
func (t *Table) Drop() error {
	if err := t.index.Close(); err != nil {
		return t.wrap("drop", err)
	}
	err := t.store.Write(func(bm diskstore.BucketManager) error {
		for _, suffix := range []string{suffixBlocks, suffixMeta, suffixScalars} {
			if err := bm.Delete(t.bucketName(suffix)); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		t.logger.Info().Msg("Dropped index")
	}
	return t.wrap("drop", err)
}

// Close releases in-memory resources. On-disk state is untouched; a close
// mid-batch discards the deferred back-edge list.
func (t *Table) Close() error {
	return t.wrap("close", t.index.Close())
}
