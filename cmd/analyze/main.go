// Command analyze runs the trajectory pipeline over a tracker CSV export
// without a server: cleaned detections, physics records, per-track stats
// and optional PNG plots are written to an output directory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/impulse-data/trajectory.report/internal/config"
	"github.com/impulse-data/trajectory.report/internal/physics"
	"github.com/impulse-data/trajectory.report/internal/pipeline"
	"github.com/impulse-data/trajectory.report/internal/report"
	"github.com/impulse-data/trajectory.report/internal/track"
	"github.com/impulse-data/trajectory.report/internal/version"
)

var (
	inputPath   = flag.String("input", "", "Tracker CSV to analyze (required)")
	outputDir   = flag.String("output", "analysis", "Output directory")
	tuningPath  = flag.String("tuning", "", "Path to tuning.json (optional)")
	ppm         = flag.Float64("ppm", 0, "Pixels per meter (overrides tuning)")
	mass        = flag.Float64("mass", 0, "Object mass in kg (overrides tuning)")
	fps         = flag.Float64("fps", 0, "Assumed frame rate when the CSV has no timestamps (overrides tuning)")
	plots       = flag.Bool("plots", false, "Write PNG plots per track")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// summary is the JSON document written next to the per-track outputs.
type summary struct {
	Source  string                 `json:"source"`
	Params  pipeline.Options       `json:"params"`
	Tracks  []pipeline.TrackResult `json:"tracks"`
	Cleaned int                    `json:"cleaned_detections"`
}

func main() {
	flag.Parse()
	if *showVersion {
		log.Printf("analyze %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts, err := buildOptions()
	if err != nil {
		log.Fatalf("Invalid parameters: %v", err)
	}

	in, err := os.Open(*inputPath)
	if err != nil {
		log.Fatalf("Failed to open input: %v", err)
	}
	detections, err := track.ReadCSV(in)
	in.Close()
	if err != nil {
		log.Fatalf("Failed to read detections: %v", err)
	}
	if len(detections) == 0 {
		log.Fatal("No detections in input")
	}
	log.Printf("Read %d detections across %d tracks", len(detections), len(track.TrackIDs(detections)))

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	results := pipeline.Run(detections, opts)

	var cleaned []track.Detection
	for _, result := range results {
		cleaned = append(cleaned, result.Cleaned...)
	}
	track.SortCanonical(cleaned)
	if err := writeDetectionsCSV(filepath.Join(*outputDir, "cleaned.csv"), cleaned); err != nil {
		log.Fatalf("Failed to write cleaned detections: %v", err)
	}

	for _, result := range results {
		if result.Error != "" {
			log.Printf("Track %d: skipped (%s)", result.TrackID, result.Error)
			continue
		}

		recordsPath := filepath.Join(*outputDir, fmt.Sprintf("track_%d_physics.csv", result.TrackID))
		if err := writeRecordsCSV(recordsPath, result.Records); err != nil {
			log.Fatalf("Failed to write records for track %d: %v", result.TrackID, err)
		}

		log.Printf("Track %d: %s (%d/%d points kept, %.1f%% removed)",
			result.TrackID, result.Analysis.MotionType,
			result.CleaningStats.CleanedPoints, result.CleaningStats.OriginalPoints,
			result.CleaningStats.CleaningPercentage)
		for _, insight := range result.Insights {
			log.Printf("Track %d: %s", result.TrackID, insight.Message)
		}

		if *plots {
			written, err := report.SavePlots(*outputDir, result.TrackID, result.Records)
			if err != nil {
				log.Fatalf("Failed to write plots for track %d: %v", result.TrackID, err)
			}
			for _, path := range written {
				log.Printf("Track %d: wrote %s", result.TrackID, path)
			}
		}
	}

	doc := summary{
		Source:  *inputPath,
		Params:  opts,
		Tracks:  results,
		Cleaned: len(cleaned),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode summary: %v", err)
	}
	summaryPath := filepath.Join(*outputDir, "summary.json")
	if err := os.WriteFile(summaryPath, data, 0644); err != nil {
		log.Fatalf("Failed to write summary: %v", err)
	}
	log.Printf("Wrote %s", summaryPath)
}

// buildOptions layers the flag overrides over the tuning file (or the
// defaults when no file is given).
func buildOptions() (pipeline.Options, error) {
	tuning := config.EmptyTuningConfig()
	if *tuningPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*tuningPath)
		if err != nil {
			return pipeline.Options{}, err
		}
	}

	opts := tuning.PipelineOptions()
	if *ppm != 0 {
		if *ppm < 0 {
			return pipeline.Options{}, fmt.Errorf("ppm must be positive, got %f", *ppm)
		}
		opts.Physics.PixelsPerMeter = *ppm
	}
	if *mass != 0 {
		if *mass < 0 {
			return pipeline.Options{}, fmt.Errorf("mass must be positive, got %f", *mass)
		}
		opts.Physics.ObjectMass = *mass
	}
	if *fps != 0 {
		if *fps < 0 {
			return pipeline.Options{}, fmt.Errorf("fps must be positive, got %f", *fps)
		}
		opts.Physics.AssumedFPS = *fps
	}
	return opts, nil
}

func writeDetectionsCSV(path string, detections []track.Detection) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return track.WriteCSV(f, detections)
}

func writeRecordsCSV(path string, records []physics.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return physics.WriteRecordsCSV(f, records)
}
