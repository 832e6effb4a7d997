package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetMaxGap() != 1 {
		t.Errorf("GetMaxGap() = %d, want 1", cfg.GetMaxGap())
	}
	if cfg.GetKSpeed() != 4.0 {
		t.Errorf("GetKSpeed() = %f, want 4.0", cfg.GetKSpeed())
	}
	if cfg.GetBackMin() != 15.0 {
		t.Errorf("GetBackMin() = %f, want 15.0", cfg.GetBackMin())
	}
	if cfg.GetCXTol() != 8.0 {
		t.Errorf("GetCXTol() = %f, want 8.0", cfg.GetCXTol())
	}
	if cfg.GetTrimPasses() != 3 {
		t.Errorf("GetTrimPasses() = %d, want 3", cfg.GetTrimPasses())
	}
	if cfg.GetGravity() != 9.81 {
		t.Errorf("GetGravity() = %f, want 9.81", cfg.GetGravity())
	}
	if cfg.GetAssumedFPS() != 30.0 {
		t.Errorf("GetAssumedFPS() = %f, want 30.0", cfg.GetAssumedFPS())
	}
	if cfg.GetSmoothingWindow() != 5 {
		t.Errorf("GetSmoothingWindow() = %d, want 5", cfg.GetSmoothingWindow())
	}
	if cfg.GetWorkers() != 4 {
		t.Errorf("GetWorkers() = %d, want 4", cfg.GetWorkers())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "tuning.json")

	testJSON := `{
  "k_speed": 5.5,
  "back_min": 20,
  "pixels_per_meter": 100,
  "object_mass": 0.45,
  "workers": 2
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Overridden values
	if cfg.GetKSpeed() != 5.5 {
		t.Errorf("GetKSpeed() = %f, want 5.5", cfg.GetKSpeed())
	}
	if cfg.GetBackMin() != 20 {
		t.Errorf("GetBackMin() = %f, want 20", cfg.GetBackMin())
	}
	if cfg.GetPixelsPerMeter() != 100 {
		t.Errorf("GetPixelsPerMeter() = %f, want 100", cfg.GetPixelsPerMeter())
	}
	if cfg.GetObjectMass() != 0.45 {
		t.Errorf("GetObjectMass() = %f, want 0.45", cfg.GetObjectMass())
	}
	if cfg.GetWorkers() != 2 {
		t.Errorf("GetWorkers() = %d, want 2", cfg.GetWorkers())
	}

	// Partial config keeps defaults elsewhere
	if cfg.GetKBack() != 3.5 {
		t.Errorf("GetKBack() = %f, want default 3.5", cfg.GetKBack())
	}
	if cfg.GetGravity() != 9.81 {
		t.Errorf("GetGravity() = %f, want default 9.81", cfg.GetGravity())
	}
}

func TestLoadTuningConfigRejectsBadInput(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("wrong extension", func(t *testing.T) {
		path := filepath.Join(tmpDir, "tuning.yaml")
		if err := os.WriteFile(path, []byte(`{}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for non-json extension")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(tmpDir, "bad.json")
		if err := os.WriteFile(path, []byte(`{"pixels_per_meter": -5}`), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for negative pixels_per_meter")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(tmpDir, "broken.json")
		if err := os.WriteFile(path, []byte(`{"k_speed": `), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadTuningConfig(path); err == nil {
			t.Error("expected error for malformed json")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadTuningConfig(filepath.Join(tmpDir, "nope.json")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestPipelineOptions(t *testing.T) {
	kSpeed := 6.0
	ppm := 50.0
	cfg := &TuningConfig{KSpeed: &kSpeed, PixelsPerMeter: &ppm}

	opts := cfg.PipelineOptions()
	if opts.Cleaning.KSpeed != 6.0 {
		t.Errorf("Cleaning.KSpeed = %f, want 6.0", opts.Cleaning.KSpeed)
	}
	if opts.Cleaning.MaxGap != 1 {
		t.Errorf("Cleaning.MaxGap = %d, want default 1", opts.Cleaning.MaxGap)
	}
	if opts.Physics.PixelsPerMeter != 50.0 {
		t.Errorf("Physics.PixelsPerMeter = %f, want 50.0", opts.Physics.PixelsPerMeter)
	}
	if opts.Workers != 4 {
		t.Errorf("Workers = %d, want default 4", opts.Workers)
	}
}

func TestLoadServerConfig(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "server.yaml")

	yaml := `
server:
  listen_addr: ":9090"
storage:
  db_path: /tmp/test.db
tuning_path: /etc/trajectory/tuning.json
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("Failed to load server config: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want :9090", cfg.Server.ListenAddr)
	}
	if cfg.Storage.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want /tmp/test.db", cfg.Storage.DBPath)
	}
	// Unset fields keep defaults
	if cfg.Storage.ReportsDir != "reports" {
		t.Errorf("ReportsDir = %q, want default reports", cfg.Storage.ReportsDir)
	}
	if cfg.Server.ReadTimeoutSec != 30 {
		t.Errorf("ReadTimeoutSec = %d, want default 30", cfg.Server.ReadTimeoutSec)
	}
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Storage.DBPath != "trajectory.db" {
		t.Errorf("DBPath = %q, want trajectory.db", cfg.Storage.DBPath)
	}
}
