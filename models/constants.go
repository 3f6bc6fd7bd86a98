package models

/* The general trend here is we prefix the type of the constant */

// ---------------------------

const (
	DistanceEuclidean = "euclidean"
	DistanceCosine    = "cosine"
	DistanceDot       = "dot"
)

// ---------------------------

// Declared types for user-defined scalar columns. The names mirror the host
// engine's type system.
const (
	ColumnTypeText    = "TEXT"
	ColumnTypeInteger = "INTEGER"
	ColumnTypeReal    = "REAL"
	ColumnTypeBlob    = "BLOB"
)

// ---------------------------

/* Column names the bridge claims for itself. A user-defined scalar column may
 * not shadow any of these. */
const (
	ReservedColumnVector         = "vector"
	ReservedColumnDistance       = "distance"
	ReservedColumnK              = "k"
	ReservedColumnRowId          = "rowid"
	ReservedColumnSearchListSize = "search_list_size"
)

// ---------------------------

const (
	DefaultMaxDegree       = 32
	DefaultBuildSearchList = 100
	DefaultSearchList      = 150
	DefaultPruneAlpha      = float32(1.4)
	DefaultMinDegree       = 8
	DefaultLRUCapacity     = 100
	DefaultBatchCacheSize  = 200
)

// ---------------------------

const (
	MaxDimension = 10_000
	MaxBlockSize = 128 << 20
)
