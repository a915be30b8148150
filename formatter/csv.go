package formatter

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/theoremus-urban-solutions/osmtrail/segments"
)

// WriteEdgesCSV writes one row per edge: relation,way,begin,end.
func WriteEdgesCSV(w io.Writer, table *segments.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"relation", "way", "begin", "end"}); err != nil {
		return err
	}
	if table != nil {
		for _, e := range table.Edges {
			row := []string{
				strconv.FormatInt(int64(e.RelationID), 10),
				strconv.FormatInt(int64(e.WayID), 10),
				strconv.FormatInt(int64(e.Begin), 10),
				strconv.FormatInt(int64(e.End), 10),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNodesCSV writes one row per edge with its node ids separated by
// spaces: relation,way,nodes.
func WriteNodesCSV(w io.Writer, table *segments.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"relation", "way", "nodes"}); err != nil {
		return err
	}
	if table != nil {
		for i, e := range table.Edges {
			ids := make([]string, len(table.Points[i]))
			for j, id := range table.Points[i] {
				ids[j] = strconv.FormatInt(int64(id), 10)
			}
			row := []string{
				strconv.FormatInt(int64(e.RelationID), 10),
				strconv.FormatInt(int64(e.WayID), 10),
				strings.Join(ids, " "),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
