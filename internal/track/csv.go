package track

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Columns is the canonical column order of the tracker CSV contract.
var Columns = []string{
	"frame", "time_s", "track_id", "class_id", "class_name", "conf",
	"x1", "y1", "x2", "y2", "cx", "cy",
}

// ReadCSV decodes tracker detections from CSV. The first row must be a
// header; columns may appear in any order. frame, track_id, cx and cy are
// required, everything else is optional (time_s is derived downstream when
// absent).
func ReadCSV(r io.Reader) ([]Detection, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"frame", "track_id", "cx", "cy"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	floatAt := func(row []string, name string) float64 {
		i, ok := col[name]
		if !ok || i >= len(row) || row[i] == "" {
			return 0
		}
		v, err := strconv.ParseFloat(row[i], 64)
		if err != nil {
			return 0
		}
		return v
	}

	var detections []Detection
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", line, err)
		}
		line++

		frame, err := strconv.Atoi(row[col["frame"]])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid frame %q: %w", line, row[col["frame"]], err)
		}
		trackID, err := strconv.ParseInt(row[col["track_id"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid track_id %q: %w", line, row[col["track_id"]], err)
		}

		d := Detection{
			Frame:   frame,
			TrackID: trackID,
			TimeS:   floatAt(row, "time_s"),
			Conf:    floatAt(row, "conf"),
			X1:      floatAt(row, "x1"),
			Y1:      floatAt(row, "y1"),
			X2:      floatAt(row, "x2"),
			Y2:      floatAt(row, "y2"),
			CX:      floatAt(row, "cx"),
			CY:      floatAt(row, "cy"),
		}
		if i, ok := col["class_id"]; ok && i < len(row) && row[i] != "" {
			if v, err := strconv.Atoi(row[i]); err == nil {
				d.ClassID = v
			}
		}
		if i, ok := col["class_name"]; ok && i < len(row) {
			d.ClassName = row[i]
		}
		detections = append(detections, d)
	}

	return detections, nil
}

// WriteCSV encodes detections in the canonical column order, one row per
// detection. This is the same shape the tracker produces, so cleaned
// output can be fed back through any consumer of the raw format.
func WriteCSV(w io.Writer, detections []Detection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, d := range detections {
		row := []string{
			strconv.Itoa(d.Frame),
			f(d.TimeS),
			strconv.FormatInt(d.TrackID, 10),
			strconv.Itoa(d.ClassID),
			d.ClassName,
			f(d.Conf),
			f(d.X1), f(d.Y1), f(d.X2), f(d.Y2),
			f(d.CX), f(d.CY),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
