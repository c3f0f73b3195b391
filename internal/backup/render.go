package backup

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imedwei/backupdbtool/internal/storage"
	"github.com/imedwei/backupdbtool/internal/utils"
)

const listTimeLayout = "2006-01-02 15:04"

// RenderList writes objects as an aligned table of key, dump time recovered
// from the filename, modification time and size. Keys without a dump
// timestamp show "-". Colors are only emitted when w is a terminal.
func RenderList(w io.Writer, objects []storage.ObjectInfo) error {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dim := r.NewStyle().Foreground(lipgloss.Color("240"))

	if len(objects) == 0 {
		_, err := fmt.Fprintln(w, dim.Render("No backups found"))
		return err
	}

	rows := make([][4]string, 0, len(objects))
	widths := [4]int{len("Key"), len("Dumped"), len("Last Modified"), len("Size")}
	for _, obj := range objects {
		dumped := "-"
		if t, err := utils.ParseDumpTimestamp(obj.Key); err == nil {
			dumped = t.Format(listTimeLayout)
		}
		row := [4]string{
			obj.Key,
			dumped,
			obj.LastModified.UTC().Format(listTimeLayout),
			utils.FormatBytes(obj.Size),
		}
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
		rows = append(rows, row)
	}

	cell := func(style lipgloss.Style, i int, s string) string {
		return style.Width(widths[i]).Render(s)
	}

	var b strings.Builder
	b.WriteString(strings.Join([]string{
		cell(header, 0, "Key"),
		cell(header, 1, "Dumped"),
		cell(header, 2, "Last Modified"),
		cell(header, 3, "Size"),
	}, "  "))
	b.WriteString("\n")

	plain := r.NewStyle()
	for _, row := range rows {
		b.WriteString(strings.Join([]string{
			cell(plain, 0, row[0]),
			cell(plain, 1, row[1]),
			cell(dim, 2, row[2]),
			cell(plain.Align(lipgloss.Right), 3, row[3]),
		}, "  "))
		b.WriteString("\n")
	}
	b.WriteString(dim.Render(fmt.Sprintf("%d backup(s)", len(objects))))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
