package distance

import "gonum.org/v1/gonum/blas/blas32"

func squaredEuclideanDistancePureGo(x, y []float32) float32 {
	var sum float32
	for i := range x {
		diff := x[i] - y[i]
		sum += diff * diff
	}
	return sum
}

func dotProduct(x, y []float32) float32 {
	return blas32.Dot(
		blas32.Vector{N: len(x), Inc: 1, Data: x},
		blas32.Vector{N: len(y), Inc: 1, Data: y},
	)
}

func cosineDistance(x, y []float32) float32 {
	xv := blas32.Vector{N: len(x), Inc: 1, Data: x}
	yv := blas32.Vector{N: len(y), Inc: 1, Data: y}
	normX := blas32.Nrm2(xv)
	normY := blas32.Nrm2(yv)
	if normX == 0 || normY == 0 {
		return 1.0
	}
	return 1 - blas32.Dot(xv, yv)/(normX*normY)
}
