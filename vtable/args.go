package vtable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vectile/vectile/models"
)

/* CREATE VIRTUAL TABLE arguments arrive as the raw strings between the
 * parentheses, one per argument:
 *
 *     dimension=128, metric=cosine, max_degree=48, title TEXT, score REAL
 *
 * A "key=value" argument configures the index, a "name TYPE" argument
 * declares a scalar column. Everything is validated here, before any shadow
 * table exists. */

func parseCreateArgs(args []string) (models.IndexParameters, []models.ScalarColumn, error) {
	params := models.DefaultIndexParameters(0)
	columns := make([]models.ScalarColumn, 0)
	seenColumns := make(map[string]struct{})
	// ---------------------------
	for _, raw := range args {
		arg := strings.TrimSpace(raw)
		if arg == "" {
			continue
		}
		if key, value, ok := strings.Cut(arg, "="); ok {
			key = strings.TrimSpace(key)
			value = strings.TrimSpace(value)
			if err := applyConfigArg(&params, key, value); err != nil {
				return params, nil, err
			}
			continue
		}
		// ---------------------------
		fields := strings.Fields(arg)
		if len(fields) != 2 {
			return params, nil, fmt.Errorf("%w: cannot parse argument %q", models.ErrInvalid, arg)
		}
		col := models.ScalarColumn{Name: fields[0], Type: strings.ToUpper(fields[1])}
		if err := col.Validate(); err != nil {
			return params, nil, err
		}
		if _, ok := seenColumns[col.Name]; ok {
			return params, nil, fmt.Errorf("%w: duplicate column %q", models.ErrInvalid, col.Name)
		}
		seenColumns[col.Name] = struct{}{}
		columns = append(columns, col)
	}
	// ---------------------------
	if params.Dimension == 0 {
		return params, nil, fmt.Errorf("%w: dimension is required", models.ErrInvalid)
	}
	if err := params.Validate(); err != nil {
		return params, nil, err
	}
	return params, columns, nil
}

func applyConfigArg(params *models.IndexParameters, key, value string) error {
	parseInt := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer, got %q", models.ErrInvalid, key, value)
		}
		return n, nil
	}
	var err error
	switch key {
	case "dimension":
		params.Dimension, err = parseInt()
	case "metric":
		switch value {
		case models.DistanceEuclidean, models.DistanceCosine, models.DistanceDot:
			params.Metric = value
		default:
			return fmt.Errorf("%w: unknown metric %q", models.ErrInvalid, value)
		}
	case "max_degree":
		params.MaxDegree, err = parseInt()
	case "build_search_list":
		params.BuildSearchList, err = parseInt()
	case "search_list":
		params.SearchList, err = parseInt()
	case "prune_alpha":
		alpha, ferr := strconv.ParseFloat(value, 32)
		if ferr != nil {
			return fmt.Errorf("%w: prune_alpha must be a number, got %q", models.ErrInvalid, value)
		}
		params.PruneAlpha = float32(alpha)
	case "block_size":
		params.BlockSize, err = parseInt()
	default:
		return fmt.Errorf("%w: unknown option %q", models.ErrInvalid, key)
	}
	return err
}
