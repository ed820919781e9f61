package cmd

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/ssargent/tablekv/pkg/codec"
)

// renderRows writes rows as a text table. Slot i of each row is printed
// under header[i].
func renderRows(w io.Writer, header []string, rows []codec.Row) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for _, row := range rows {
		cells := make([]string, len(header))
		for i := range cells {
			if i < len(row) {
				cells[i] = formatValue(row[i])
			}
		}
		table.Append(cells)
	}
	table.Render()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// present returns the logical slots and names of the non-dropped columns.
func present(names []string) ([]int, []string) {
	var slots []int
	var out []string
	for i, name := range names {
		if name != "" {
			slots = append(slots, i)
			out = append(out, name)
		}
	}
	return slots, out
}

// pick returns the given slots of row.
func pick(row codec.Row, slots []int) codec.Row {
	out := make(codec.Row, len(slots))
	for i, slot := range slots {
		if slot < len(row) {
			out[i] = row[slot]
		}
	}
	return out
}
