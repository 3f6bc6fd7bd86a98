package httpapi

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/vectile/vectile/conversion"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/graph"
	"github.com/vectile/vectile/models"
	"github.com/vectile/vectile/vtable"
)

// All HTTP-exposed tables live in one schema; embedded callers go through
// the vtable package directly and can pick their own.
const httpSchema = "main"

// TableManager keeps the open table handles of the HTTP surface. Handles are
// opened lazily and kept until the table is dropped. Tables are single-threaded
// by contract and serialising calls is the host's job, which here means one
// request at a time.
type TableManager struct {
	store  diskstore.DiskStore
	tables map[string]*vtable.Table
	mu     sync.Mutex
}

func NewTableManager(store diskstore.DiskStore) *TableManager {
	return &TableManager{
		store:  store,
		tables: make(map[string]*vtable.Table),
	}
}

// serialise wraps a handler so table calls are linearised across requests.
func (tm *TableManager) serialise(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		handler(c)
	}
}

func (tm *TableManager) SetupV1Handlers(group *gin.RouterGroup) {
	group.POST("/tables", tm.serialise(tm.HandleCreateTable))
	group.DELETE("/tables/:name", tm.serialise(tm.HandleDropTable))
	group.POST("/tables/:name/rows", tm.serialise(tm.HandleInsertRow))
	group.DELETE("/tables/:name/rows/:rowid", tm.serialise(tm.HandleDeleteRow))
	group.POST("/tables/:name/search", tm.serialise(tm.HandleSearch))
	group.POST("/tables/:name/batch", tm.serialise(tm.HandleBatch))
}

// ---------------------------

// statusFromError maps the library error namespace onto HTTP statuses.
func statusFromError(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeInvalid, models.CodeDimension:
		return http.StatusBadRequest
	case models.CodeNotFound:
		return http.StatusNotFound
	case models.CodeExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFromError(err), gin.H{"error": err.Error()})
}

// decode binds the request body as json or msgpack depending on the content
// type, reusing the json field names for both.
func decode[T any](c *gin.Context, v *T) error {
	if c.ContentType() == "application/msgpack" {
		dec := msgpack.NewDecoder(c.Request.Body)
		dec.SetCustomStructTag("json")
		return dec.Decode(v)
	}
	return c.ShouldBindJSON(v)
}

func (tm *TableManager) getTable(c *gin.Context) (*vtable.Table, bool) {
	name := c.Param("name")
	if tbl, ok := tm.tables[name]; ok {
		return tbl, true
	}
	tbl, err := vtable.Open(tm.store, httpSchema, name)
	if err != nil {
		abortWithError(c, err)
		return nil, false
	}
	tm.tables[name] = tbl
	return tbl, true
}

// ---------------------------

type CreateTableRequest struct {
	Name string   `json:"name" binding:"required"`
	Args []string `json:"args" binding:"required"`
}

func (tm *TableManager) HandleCreateTable(c *gin.Context) {
	var req CreateTableRequest
	if err := decode(c, &req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", models.ErrInvalid, err))
		return
	}
	tbl, err := vtable.Create(tm.store, httpSchema, req.Name, req.Args)
	if err != nil {
		abortWithError(c, err)
		return
	}
	tm.tables[req.Name] = tbl
	c.JSON(http.StatusOK, gin.H{"name": tbl.Name(), "parameters": tbl.Parameters()})
}

func (tm *TableManager) HandleDropTable(c *gin.Context) {
	tbl, ok := tm.getTable(c)
	if !ok {
		return
	}
	if err := tbl.Drop(); err != nil {
		abortWithError(c, err)
		return
	}
	delete(tm.tables, c.Param("name"))
	c.JSON(http.StatusOK, gin.H{"message": "dropped"})
}

// ---------------------------

type InsertRowRequest struct {
	RowId   *uint64        `json:"rowId" binding:"required"`
	Vector  []float32      `json:"vector" binding:"required"`
	Scalars map[string]any `json:"scalars"`
}

func (tm *TableManager) HandleInsertRow(c *gin.Context) {
	tbl, ok := tm.getTable(c)
	if !ok {
		return
	}
	var req InsertRowRequest
	if err := decode(c, &req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", models.ErrInvalid, err))
		return
	}
	err := tbl.Insert(*req.RowId, conversion.Float32ToBytes(req.Vector), req.Scalars)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rowId": *req.RowId})
}

func (tm *TableManager) HandleDeleteRow(c *gin.Context) {
	tbl, ok := tm.getTable(c)
	if !ok {
		return
	}
	var rowId uint64
	if _, err := fmt.Sscanf(c.Param("rowid"), "%d", &rowId); err != nil {
		abortWithError(c, fmt.Errorf("%w: rowid must be an integer", models.ErrInvalid))
		return
	}
	if err := tbl.Delete(rowId); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rowId": rowId})
}

// ---------------------------

type SearchRequest struct {
	Vector         []float32             `json:"vector" binding:"required"`
	K              int                   `json:"k" binding:"required,min=1"`
	SearchListSize int                   `json:"searchListSize"`
	Limit          int                   `json:"limit"`
	Filters        []models.ScalarFilter `json:"filters"`
}

func (tm *TableManager) HandleSearch(c *gin.Context) {
	tbl, ok := tm.getTable(c)
	if !ok {
		return
	}
	var req SearchRequest
	if err := decode(c, &req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", models.ErrInvalid, err))
		return
	}
	results, err := tbl.Search(conversion.Float32ToBytes(req.Vector), models.SearchOptions{
		K:              req.K,
		SearchListSize: req.SearchListSize,
		Limit:          req.Limit,
		Filters:        req.Filters,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// ---------------------------

type BatchRequest struct {
	Action           string `json:"action" binding:"required,oneof=begin end"`
	OwningCache      bool   `json:"owningCache"`
	DeferredBackEdge bool   `json:"deferredBackEdges"`
}

func (tm *TableManager) HandleBatch(c *gin.Context) {
	tbl, ok := tm.getTable(c)
	if !ok {
		return
	}
	var req BatchRequest
	if err := decode(c, &req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", models.ErrInvalid, err))
		return
	}
	var err error
	switch req.Action {
	case "begin":
		var flags graph.BatchFlags
		if req.OwningCache {
			flags |= graph.BatchOwningCache
		}
		if req.DeferredBackEdge {
			flags |= graph.BatchDeferredBackEdges
		}
		err = tbl.BeginBatch(flags)
	case "end":
		err = tbl.EndBatch()
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"action": req.Action})
}
