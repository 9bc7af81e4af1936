package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/streamgrid"
	"github.com/arloliu/streamgrid/grid"
)

func TestParseColumns(t *testing.T) {
	cols, err := parseColumns([]string{"price:Price", "qty"})
	require.NoError(t, err)
	require.Equal(t, []streamgrid.Column{{Field: "price", Header: "Price"}, {Field: "qty"}}, cols)

	_, err = parseColumns([]string{":Header"})
	require.ErrorIs(t, err, streamgrid.ErrInvalidConfig)
}

func TestParseFilters(t *testing.T) {
	criteria, err := parseFilters([]string{"price:gte:10", "desk:eq:EU:1"})
	require.NoError(t, err)
	require.Equal(t, []streamgrid.Criterion{
		{Field: "price", Op: grid.OpGte, Value: 10.0},
		{Field: "desk", Op: grid.OpEq, Value: "EU:1"},
	}, criteria)

	_, err = parseFilters([]string{"price>10"})
	require.ErrorIs(t, err, streamgrid.ErrInvalidConfig)
}
