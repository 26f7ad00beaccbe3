package services

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"postal-prediction-api/config"
	"postal-prediction-api/models"
)

func leaf(v float64) treeNode { return treeNode{Leaf: &v} }

func fieldIndex(t *testing.T, schema []models.FeatureField, name string) int {
	t.Helper()
	for i, f := range schema {
		if f.Name == name {
			return i
		}
	}
	t.Fatalf("field %q not in schema", name)
	return -1
}

// writeTestModel writes a small hand-built ensemble for the item schema:
// base 10, one numeric split on hour (<12 -> +5, else +20) and one
// categorical split on origin_destination (DZ_FR -> +2, else -1).
func writeTestModel(t *testing.T) string {
	t.Helper()
	hour := fieldIndex(t, models.ItemFeatureSchema, "hour")
	od := fieldIndex(t, models.ItemFeatureSchema, "origin_destination")

	m := regressionModel{
		Name:     "item_route_duration",
		Version:  "test",
		Base:     10,
		Features: models.ItemFeatureSchema,
		Trees: []modelTree{
			{Nodes: []treeNode{
				{Feature: hour, Threshold: 12, Left: 1, Right: 2},
				leaf(5),
				leaf(20),
			}},
			{Nodes: []treeNode{
				{Feature: od, Categories: []string{"DZ_FR"}, Left: 1, Right: 2},
				leaf(2),
				leaf(-1),
			}},
		},
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal model: %v", err)
	}
	path := filepath.Join(t.TempDir(), "item_model.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

func itemVector(t *testing.T, ts string) models.FeatureVector {
	t.Helper()
	svc := newTestFeatureService()
	target := scan("RR123456789DZ", "DZ0000FR00", ts, "ALG01", "ORN02", "21")
	v, err := svc.PrepareItemFeatures(target, []models.ScanEvent{target}, []models.ScanEvent{target})
	if err != nil {
		t.Fatalf("PrepareItemFeatures() error: %v", err)
	}
	return v
}

func TestScoreItemDeterministic(t *testing.T) {
	path := writeTestModel(t)
	svc := NewModelService(config.DataConfig{ItemModelPath: path})

	morning := itemVector(t, "2024-01-02 08:00:00")
	got, err := svc.ScoreItem(morning)
	if err != nil {
		t.Fatalf("ScoreItem() error: %v", err)
	}
	// base 10 + hour<12 leaf 5 + DZ_FR leaf 2
	if math.Abs(got-17) > 1e-9 {
		t.Errorf("ScoreItem() = %v, want 17", got)
	}

	// Same vector, same result.
	again, err := svc.ScoreItem(morning)
	if err != nil {
		t.Fatalf("ScoreItem() second call error: %v", err)
	}
	if again != got {
		t.Errorf("scoring is not deterministic: %v then %v", got, again)
	}

	evening := itemVector(t, "2024-01-02 18:00:00")
	got, err = svc.ScoreItem(evening)
	if err != nil {
		t.Fatalf("ScoreItem() error: %v", err)
	}
	// base 10 + hour>=12 leaf 20 + DZ_FR leaf 2
	if math.Abs(got-32) > 1e-9 {
		t.Errorf("ScoreItem() = %v, want 32", got)
	}
}

func TestScoreRejectsWrongSchema(t *testing.T) {
	path := writeTestModel(t)
	svc := NewModelService(config.DataConfig{ItemModelPath: path})

	fsvc := newTestFeatureService()
	target := scan("", "DZ0000FR00", "2024-01-02 08:00:00", "ALG01", "", "80")
	rcpVector, err := fsvc.PrepareReceptacleFeatures(target, []models.ScanEvent{target}, []models.ScanEvent{target}, nil)
	if err != nil {
		t.Fatalf("PrepareReceptacleFeatures() error: %v", err)
	}

	if _, err := svc.ScoreItem(rcpVector); err == nil {
		t.Fatal("expected schema mismatch error when scoring a receptacle vector with the item model")
	}
}

func TestLoadModelErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		svc := NewModelService(config.DataConfig{ItemModelPath: "nope/model.json"})
		if _, err := svc.ScoreItem(itemVector(t, "2024-01-02 08:00:00")); err == nil {
			t.Error("expected error for missing model file")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
			t.Fatal(err)
		}
		svc := NewModelService(config.DataConfig{ItemModelPath: path})
		if _, err := svc.ScoreItem(itemVector(t, "2024-01-02 08:00:00")); err == nil {
			t.Error("expected error for malformed model file")
		}
	})

	t.Run("out of range child", func(t *testing.T) {
		m := regressionModel{
			Name:     "broken",
			Features: models.ItemFeatureSchema,
			Trees:    []modelTree{{Nodes: []treeNode{{Feature: 3, Threshold: 1, Left: 5, Right: 6}}}},
		}
		data, _ := json.Marshal(m)
		path := filepath.Join(t.TempDir(), "broken.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := loadRegressionModel(path); err == nil {
			t.Error("expected validation error for invalid child index")
		}
	})

	t.Run("cyclic tree", func(t *testing.T) {
		// Node 1 points back at the root: in-range children forming a
		// cycle must be rejected at load, not hang scoring.
		m := regressionModel{
			Name:     "cyclic",
			Features: models.ItemFeatureSchema,
			Trees: []modelTree{{Nodes: []treeNode{
				{Feature: 3, Threshold: 1, Left: 1, Right: 2},
				{Feature: 3, Threshold: 2, Left: 0, Right: 3},
				leaf(1),
				leaf(2),
			}}},
		}
		data, _ := json.Marshal(m)
		path := filepath.Join(t.TempDir(), "cyclic.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := loadRegressionModel(path); err == nil {
			t.Error("expected validation error for cyclic tree")
		}
	})
}
