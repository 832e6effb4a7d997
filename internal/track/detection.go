// Package track defines the detection records produced by the upstream
// object tracker and the tabular boundary format used to exchange them.
package track

import "sort"

// Detection is one tracker observation of one object in one video frame.
// The upstream tracker emits one row per detection; the same frame may
// carry several rows for the same track when the detector fires twice.
type Detection struct {
	Frame     int     `json:"frame"`
	TimeS     float64 `json:"time_s"`
	TrackID   int64   `json:"track_id"`
	ClassID   int     `json:"class_id"`
	ClassName string  `json:"class_name"`
	Conf      float64 `json:"conf"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	X2        float64 `json:"x2"`
	Y2        float64 `json:"y2"`
	CX        float64 `json:"cx"`
	CY        float64 `json:"cy"`
}

// GroupByTrack splits detections into per-track slices ordered by frame.
// Input order is otherwise preserved so duplicate-frame rows keep their
// original relative order.
func GroupByTrack(detections []Detection) map[int64][]Detection {
	byTrack := make(map[int64][]Detection)
	for _, d := range detections {
		byTrack[d.TrackID] = append(byTrack[d.TrackID], d)
	}
	for id := range byTrack {
		ds := byTrack[id]
		sort.SliceStable(ds, func(i, j int) bool { return ds[i].Frame < ds[j].Frame })
		byTrack[id] = ds
	}
	return byTrack
}

// TrackIDs returns the distinct track identifiers in ascending order.
func TrackIDs(detections []Detection) []int64 {
	seen := make(map[int64]bool)
	ids := make([]int64, 0)
	for _, d := range detections {
		if !seen[d.TrackID] {
			seen[d.TrackID] = true
			ids = append(ids, d.TrackID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortCanonical orders detections by (track_id, frame), the canonical
// order of the tabular boundary format.
func SortCanonical(detections []Detection) {
	sort.SliceStable(detections, func(i, j int) bool {
		if detections[i].TrackID != detections[j].TrackID {
			return detections[i].TrackID < detections[j].TrackID
		}
		return detections[i].Frame < detections[j].Frame
	})
}
