package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ParameterValidation(t *testing.T) {
	base := DefaultIndexParameters(128)
	require.NoError(t, base.Validate())
	// ---------------------------
	cases := []struct {
		name   string
		mutate func(*IndexParameters)
	}{
		{"zero dimension", func(p *IndexParameters) { p.Dimension = 0 }},
		{"huge dimension", func(p *IndexParameters) { p.Dimension = MaxDimension + 1 }},
		{"bad metric", func(p *IndexParameters) { p.Metric = "manhattan" }},
		{"zero degree", func(p *IndexParameters) { p.MaxDegree = 0 }},
		{"zero search list", func(p *IndexParameters) { p.SearchList = 0 }},
		{"alpha too small", func(p *IndexParameters) { p.PruneAlpha = 0.9 }},
		{"alpha too large", func(p *IndexParameters) { p.PruneAlpha = 2.1 }},
		{"negative block size", func(p *IndexParameters) { p.BlockSize = -1 }},
		{"huge block size", func(p *IndexParameters) { p.BlockSize = MaxBlockSize + 1 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := base
			c.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func Test_ColumnValidation(t *testing.T) {
	require.NoError(t, ScalarColumn{Name: "title", Type: ColumnTypeText}.Validate())
	// Every reserved name is rejected
	for _, name := range []string{"vector", "distance", "k", "rowid", "search_list_size"} {
		err := ScalarColumn{Name: name, Type: ColumnTypeText}.Validate()
		require.Error(t, err, name)
	}
	require.Error(t, ScalarColumn{Name: "ok", Type: "VARCHAR"}.Validate())
	require.Error(t, ScalarColumn{Name: "1bad", Type: ColumnTypeText}.Validate())
	require.Error(t, ScalarColumn{Name: "semi;colon", Type: ColumnTypeText}.Validate())
}

func Test_IsValidIdentifier(t *testing.T) {
	require.True(t, IsValidIdentifier("snake_case_1"))
	require.True(t, IsValidIdentifier("_leading"))
	require.False(t, IsValidIdentifier(""))
	require.False(t, IsValidIdentifier("has space"))
	require.False(t, IsValidIdentifier("quote\"name"))
	require.False(t, IsValidIdentifier("1digit"))
}

func Test_ErrorCodes(t *testing.T) {
	require.Equal(t, CodeOK, ErrorCode(nil))
	require.Equal(t, CodeInvalid, ErrorCode(ErrInvalid))
	// Codes survive wrapping
	wrapped := fmt.Errorf("insert idx: %w", fmt.Errorf("%w: rowid 7", ErrExists))
	require.Equal(t, CodeExists, ErrorCode(wrapped))
	// Unknown errors count as storage errors
	require.Equal(t, CodeIO, ErrorCode(errors.New("disk on fire")))
}

func Test_CoerceScalar(t *testing.T) {
	v, err := CoerceScalar(ColumnTypeInteger, float64(42))
	require.NoError(t, err)
	require.Equal(t, IntegerValue(42), v)
	// Fractional numbers do not silently truncate
	_, err = CoerceScalar(ColumnTypeInteger, float64(42.5))
	require.Error(t, err)
	// ---------------------------
	v, err = CoerceScalar(ColumnTypeReal, 7)
	require.NoError(t, err)
	require.Equal(t, RealValue(7), v)
	v, err = CoerceScalar(ColumnTypeText, "hello")
	require.NoError(t, err)
	require.Equal(t, TextValue("hello"), v)
	_, err = CoerceScalar(ColumnTypeText, 1)
	require.Error(t, err)
	// Nil is null for any type
	v, err = CoerceScalar(ColumnTypeBlob, nil)
	require.NoError(t, err)
	require.Equal(t, NullValue(), v)
}

func Test_ScalarCompareAndFilters(t *testing.T) {
	require.Equal(t, 0, IntegerValue(5).Compare(IntegerValue(5)))
	require.Negative(t, IntegerValue(4).Compare(IntegerValue(5)))
	require.Positive(t, TextValue("b").Compare(TextValue("a")))
	require.Negative(t, BlobValue([]byte{1}).Compare(BlobValue([]byte{1, 0})))
	// Null sorts before everything
	require.Negative(t, NullValue().Compare(IntegerValue(0)))
	// ---------------------------
	f := ScalarFilter{Column: "score", Operator: OperatorInRange, Value: IntegerValue(3), EndValue: IntegerValue(5)}
	require.True(t, f.Matches(IntegerValue(3)))
	require.True(t, f.Matches(IntegerValue(5)))
	require.False(t, f.Matches(IntegerValue(6)))
	// ---------------------------
	ne := ScalarFilter{Column: "score", Operator: OperatorNotEquals, Value: IntegerValue(3)}
	require.False(t, ne.Matches(IntegerValue(3)))
	require.True(t, ne.Matches(IntegerValue(4)))
}
