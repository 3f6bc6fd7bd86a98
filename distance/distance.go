package distance

import (
	"fmt"

	"github.com/vectile/vectile/models"
)

type FloatDistFunc func(x, y []float32) float32

// Euclidean distance actually computes the squared euclidean distance for
// efficiency. This should not affect the results of the nearest neighbour
// search as the square root is monotonic.
var euclideanDistance FloatDistFunc = squaredEuclideanDistancePureGo

func dotProductDistance(x, y []float32) float32 {
	// Negated so that nearer means smaller throughout the index.
	return -dotProduct(x, y)
}

// Returns floating distance function by name.
func GetFloatDistanceFn(name string) (FloatDistFunc, error) {
	switch name {
	case models.DistanceEuclidean:
		return euclideanDistance, nil
	case models.DistanceDot:
		return dotProductDistance, nil
	case models.DistanceCosine:
		return cosineDistance, nil
	default:
		return nil, fmt.Errorf("%w: unknown distance function %s", models.ErrInvalid, name)
	}
}
