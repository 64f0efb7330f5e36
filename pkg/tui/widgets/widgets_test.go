package widgets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	require.Equal(t, "hello", Truncate("hello", 5))
	require.Equal(t, "hel…", Truncate("hello", 4))
	require.Equal(t, "…", Truncate("hello", 1))
	require.Equal(t, "", Truncate("hello", 0))
	require.Equal(t, "ünï…", Truncate("ünïcode", 4))
}

func TestTable_EmptyText(t *testing.T) {
	out := NewTable([]TableColumn{{Header: "Build ID", Width: 10}}).
		WithSize(60, 0).
		WithEmptyText("No matching builds found.").
		Render()
	require.Contains(t, out, "No matching builds found.")
}

func TestTable_RowsAndDetail(t *testing.T) {
	out := NewTable([]TableColumn{{Header: "Name", Width: 12}, {Header: "State", Width: 10}}).
		WithRows([]TableRow{
			{Cells: []string{"first", "enabled"}},
			{Cells: []string{"second", "disabled"}, Detail: []string{"user disabled"}},
		}).
		WithCursor(1).
		WithSize(60, 0).
		Render()
	require.Contains(t, out, "Name")
	require.Contains(t, out, "first")
	require.Contains(t, out, "user disabled")
	require.Less(t, strings.Index(out, "first"), strings.Index(out, "second"))
}

func TestStepProgress(t *testing.T) {
	require.Contains(t, StepProgress(0, 5).Render(), "0%")
	require.Contains(t, StepProgress(5, 5).Render(), "100%")
	require.Contains(t, StepProgress(1, 0).Render(), "0%")
}
