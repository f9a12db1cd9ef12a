package pagination

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPageEmitsCursorOnlyWhenMoreRemain(t *testing.T) {
	rows := []int64{10, 11, 12}

	page, info, err := BuildPage(rows, 2, func(v int64) int64 { return v })
	require.NoError(t, err)
	require.Equal(t, []int64{10, 11}, page)
	require.True(t, info.HasMore)

	cursor, err := Pagination{PageToken: info.NextPageToken}.Cursor()
	require.NoError(t, err)
	require.Equal(t, int64(11), cursor.AfterID)

	page, info, err = BuildPage(rows[2:], 2, func(v int64) int64 { return v })
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.False(t, info.HasMore)
	require.Empty(t, info.NextPageToken)
}

func TestPaginationSizeAndToken(t *testing.T) {
	require.Equal(t, DefaultPageSize, Pagination{}.Size())
	require.Equal(t, MaxPageSize, Pagination{PageSize: 10_000}.Size())
	require.Equal(t, 7, Pagination{PageSize: 7}.Size())

	_, err := Pagination{PageToken: "%%%"}.Cursor()
	require.ErrorIs(t, err, ErrInvalidPageToken)
}
