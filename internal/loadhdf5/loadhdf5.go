// Bulk-loads an ann-benchmarks hdf5 dataset (the "train" dataset) into a
// vectile index, for manual recall and throughput runs:
//
//	go run ./internal/loadhdf5 -db vectors.db -file glove-25-angular.hdf5 -metric cosine
package main

import (
	"flag"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/hdf5"

	"github.com/vectile/vectile/conversion"
	"github.com/vectile/vectile/diskstore"
	"github.com/vectile/vectile/graph"
	"github.com/vectile/vectile/vtable"
)

type VectorCollection struct {
	Name       string
	Vectors    [][]float32
	DistMetric string
}

func normalise(embedding []float32) {
	var magnitude float32 = 0.0
	for _, v := range embedding {
		magnitude += v * v
	}
	magnitude = float32(math.Sqrt(float64(magnitude)))
	for i, v := range embedding {
		embedding[i] = v / magnitude
	}
}

func loadHDF5(fpath string) (VectorCollection, error) {
	vCol := VectorCollection{Name: filepath.Base(fpath)}
	f, err := hdf5.OpenFile(fpath, hdf5.F_ACC_RDONLY)
	if err != nil {
		return vCol, err
	}
	defer f.Close()
	// ---------------------------
	dset, err := f.OpenDataset("train")
	if err != nil {
		return vCol, err
	}
	defer dset.Close()
	// ---------------------------
	dspace := dset.Space()
	dataBuf := make([]float32, dspace.SimpleExtentNPoints())
	if err := dset.Read(&dataBuf); err != nil {
		return vCol, err
	}
	dims, _, err := dspace.SimpleExtentDims()
	if err != nil {
		return vCol, err
	}
	numVecs, vecSize := int(dims[0]), int(dims[1])
	// ---------------------------
	// The angular datasets expect normalised vectors
	isAngular := strings.Contains(vCol.Name, "angular")
	vCol.Vectors = make([][]float32, numVecs)
	for i := 0; i < numVecs; i++ {
		vCol.Vectors[i] = dataBuf[i*vecSize : (i+1)*vecSize]
		if isAngular {
			normalise(vCol.Vectors[i])
		}
	}
	return vCol, nil
}

func main() {
	dbPath := flag.String("db", "vectors.db", "path of the backing database file")
	filePath := flag.String("file", "", "hdf5 dataset to load")
	metric := flag.String("metric", "euclidean", "distance metric")
	tableName := flag.String("table", "vectors", "index name")
	flag.Parse()
	if *filePath == "" {
		log.Fatal().Msg("-file is required")
	}
	// ---------------------------
	vCol, err := loadHDF5(*filePath)
	if err != nil {
		log.Fatal().Err(err).Str("file", *filePath).Msg("Failed to load dataset")
	}
	log.Info().Int("numVectors", len(vCol.Vectors)).Str("name", vCol.Name).Msg("Dataset loaded")
	// ---------------------------
	store, err := diskstore.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer store.Close()
	dimension := len(vCol.Vectors[0])
	tbl, err := vtable.Create(store, "main", *tableName, []string{
		fmt.Sprintf("dimension=%d", dimension),
		"metric=" + *metric,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create index")
	}
	defer tbl.Close()
	// ---------------------------
	if err := tbl.BeginBatch(graph.BatchOwningCache | graph.BatchDeferredBackEdges); err != nil {
		log.Fatal().Err(err).Msg("Failed to begin batch")
	}
	bar := progressbar.Default(int64(len(vCol.Vectors)), "inserting")
	for i, v := range vCol.Vectors {
		if err := tbl.Insert(uint64(i+1), conversion.Float32ToBytes(v), nil); err != nil {
			log.Fatal().Err(err).Int("row", i+1).Msg("Failed to insert")
		}
		bar.Add(1)
	}
	if err := tbl.EndBatch(); err != nil {
		log.Fatal().Err(err).Msg("Failed to end batch")
	}
	log.Info().Msg("Done")
}
