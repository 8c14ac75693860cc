package visits

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// Export filenames per report.
const (
	VisitsFilename    = "logs.csv"
	PageStatsFilename = "pages_stat.csv"
	UserStatsFilename = "users_stat.csv"
)

const (
	csvSeparator = ", "
	csvIndex     = "№"
	timeLayout   = "2006-01-02 15:04:05"
)

// Table is a report ready to be written as CSV.
type Table struct {
	Fields []string
	Rows   [][]string
}

// WriteTo writes the table as "№, f1, f2" followed by "i, v1, v2" lines with
// 1-based row numbers. Values are written verbatim: a value containing the
// separator shifts the columns of its row.
func (t Table) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(csvIndex)
	for _, field := range t.Fields {
		buf.WriteString(csvSeparator)
		buf.WriteString(field)
	}
	buf.WriteByte('\n')
	for i, row := range t.Rows {
		buf.WriteString(strconv.Itoa(i + 1))
		for _, value := range row {
			buf.WriteString(csvSeparator)
			buf.WriteString(value)
		}
		buf.WriteByte('\n')
	}
	return buf.WriteTo(w)
}

// String renders the table as CSV text.
func (t Table) String() string {
	var sb strings.Builder
	_, _ = t.WriteTo(&sb)
	return sb.String()
}

// EntriesTable exports the visit log.
func EntriesTable(entries []Entry) Table {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Path, e.Login, e.CreatedAt.Format(timeLayout)})
	}
	return Table{Fields: []string{"path", "login", "created_at"}, Rows: rows}
}

// PageStatsTable exports per-path counts.
func PageStatsTable(stats []PageStat) Table {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{s.Path, strconv.FormatInt(s.Count, 10)})
	}
	return Table{Fields: []string{"path", "count"}, Rows: rows}
}

// UserStatsTable exports per-user counts.
func UserStatsTable(stats []UserStat) Table {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{s.FirstName, s.LastName, s.MiddleName, strconv.FormatInt(s.Count, 10)})
	}
	return Table{Fields: []string{"first_name", "last_name", "middle_name", "count"}, Rows: rows}
}
