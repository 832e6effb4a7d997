package physics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// recordColumns is the flat tabular boundary format consumed by the
// overlay renderer and report generators: one row per sample.
var recordColumns = []string{
	"frame", "time_s", "track_id", "cx", "cy",
	"x_m", "y_m",
	"vx", "vy", "speed",
	"ax", "ay", "acceleration",
	"momentum_x", "momentum_y", "momentum_magnitude",
	"force_x", "force_y", "force_magnitude",
	"kinetic_energy", "potential_energy", "total_energy",
	"work_done", "power",
	"x_m_smooth", "y_m_smooth",
	"vx_smooth", "vy_smooth", "ax_smooth", "ay_smooth",
}

// WriteRecordsCSV encodes derived records as CSV. All values are finite
// by construction (the derivation scrubs non-finite values), so the
// output is safe for consumers that do not speak IEEE-754 specials.
// ReadRecordsCSV reverses it.
func WriteRecordsCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Frame),
			f(r.TimeS),
			strconv.FormatInt(r.TrackID, 10),
			f(r.CX), f(r.CY),
			f(r.XM), f(r.YM),
			f(r.VX), f(r.VY), f(r.Speed),
			f(r.AX), f(r.AY), f(r.AccelMag),
			f(r.MomentumX), f(r.MomentumY), f(r.MomentumMag),
			f(r.ForceX), f(r.ForceY), f(r.ForceMag),
			f(r.KineticEnergy), f(r.PotentialEnergy), f(r.TotalEnergy),
			f(r.Work), f(r.Power),
			f(r.XMSmooth), f(r.YMSmooth),
			f(r.VXSmooth), f(r.VYSmooth), f(r.AXSmooth), f(r.AYSmooth),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadRecordsCSV decodes records previously written by WriteRecordsCSV.
// The header must match recordColumns exactly; this format is an internal
// round-trip contract, not a lenient ingest path.
func ReadRecordsCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) != len(recordColumns) {
		return nil, fmt.Errorf("unexpected record CSV header: got %d columns, want %d", len(header), len(recordColumns))
	}
	for i, name := range recordColumns {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected record CSV column %d: got %q, want %q", i, header[i], name)
		}
	}

	var records []Record
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

		fields := make([]float64, len(row))
		for i := 3; i < len(row); i++ {
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", line, recordColumns[i], err)
			}
			fields[i] = v
		}

		var rec Record
		if rec.Frame, err = strconv.Atoi(row[0]); err != nil {
			return nil, fmt.Errorf("row %d: invalid frame %q: %w", line, row[0], err)
		}
		if rec.TimeS, err = strconv.ParseFloat(row[1], 64); err != nil {
			return nil, fmt.Errorf("row %d: invalid time_s %q: %w", line, row[1], err)
		}
		if rec.TrackID, err = strconv.ParseInt(row[2], 10, 64); err != nil {
			return nil, fmt.Errorf("row %d: invalid track_id %q: %w", line, row[2], err)
		}

		rec.CX, rec.CY = fields[3], fields[4]
		rec.XM, rec.YM = fields[5], fields[6]
		rec.VX, rec.VY, rec.Speed = fields[7], fields[8], fields[9]
		rec.AX, rec.AY, rec.AccelMag = fields[10], fields[11], fields[12]
		rec.MomentumX, rec.MomentumY, rec.MomentumMag = fields[13], fields[14], fields[15]
		rec.ForceX, rec.ForceY, rec.ForceMag = fields[16], fields[17], fields[18]
		rec.KineticEnergy, rec.PotentialEnergy, rec.TotalEnergy = fields[19], fields[20], fields[21]
		rec.Work, rec.Power = fields[22], fields[23]
		rec.XMSmooth, rec.YMSmooth = fields[24], fields[25]
		rec.VXSmooth, rec.VYSmooth = fields[26], fields[27]
		rec.AXSmooth, rec.AYSmooth = fields[28], fields[29]

		records = append(records, rec)
	}
	return records, nil
}
