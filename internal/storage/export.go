package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/holosym/internal/dynamo"
)

// WriteCSV writes one header row and one row per sample. Values use the
// shortest representation that parses back to the same float64. Missing
// column names default to x0, x1, ...
func WriteCSV(w io.Writer, columns []string, traj *dynamo.Trajectory) error {
	cw := csv.NewWriter(w)

	if traj.Len() == 0 {
		cw.Flush()
		return cw.Error()
	}

	dim := len(traj.States[0])
	header := make([]string, 0, dim+1)
	header = append(header, "time")
	for i := 0; i < dim; i++ {
		if i < len(columns) {
			header = append(header, columns[i])
		} else {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, dim+1)
	for i := range traj.States {
		row[0] = strconv.FormatFloat(traj.Times[i], 'g', -1, 64)
		for j, val := range traj.States[i] {
			row[j+1] = strconv.FormatFloat(val, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

type ExportData struct {
	RunMetadata
	Times  []float64   `json:"times"`
	States [][]float64 `json:"states"`
}

// ExportJSON writes the run metadata together with its samples.
func ExportJSON(w io.Writer, meta RunMetadata, traj *dynamo.Trajectory) error {
	data := ExportData{
		RunMetadata: meta,
		Times:       traj.Times,
		States:      make([][]float64, len(traj.States)),
	}
	for i, s := range traj.States {
		data.States[i] = s
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
