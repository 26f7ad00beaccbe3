package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"postal-prediction-api/config"
	"postal-prediction-api/models"
)

// regressionModel is a gradient-boosted regression ensemble deserialized
// from a JSON model file. Scoring is the base prediction plus the leaf value
// of every tree; trees split numerically (value < threshold) or on
// categorical set membership.
type regressionModel struct {
	Name     string               `json:"name"`
	Version  string               `json:"version"`
	Base     float64              `json:"base_prediction"`
	Features []models.FeatureField `json:"features"`
	Trees    []modelTree          `json:"trees"`
}

type modelTree struct {
	Nodes []treeNode `json:"nodes"`
}

type treeNode struct {
	// Leaf value; when set the node is terminal and every other field is
	// ignored.
	Leaf *float64 `json:"leaf,omitempty"`

	// Split definition: index into Features, then either a numeric
	// threshold or a category set.
	Feature    int      `json:"feature"`
	Threshold  float64  `json:"threshold"`
	Categories []string `json:"categories,omitempty"`

	// Child node indexes within the same tree.
	Left  int `json:"left"`
	Right int `json:"right"`
}

func loadRegressionModel(path string) (*regressionModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	var m regressionModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model file %s: %w", path, err)
	}
	if len(m.Features) == 0 {
		return nil, fmt.Errorf("model file %s declares no features", path)
	}
	for ti, tree := range m.Trees {
		for ni, node := range tree.Nodes {
			if node.Leaf != nil {
				continue
			}
			if node.Feature < 0 || node.Feature >= len(m.Features) {
				return nil, fmt.Errorf("model %s: tree %d node %d references feature %d out of range", path, ti, ni, node.Feature)
			}
			if node.Left < 0 || node.Left >= len(tree.Nodes) || node.Right < 0 || node.Right >= len(tree.Nodes) {
				return nil, fmt.Errorf("model %s: tree %d node %d has invalid child index", path, ti, ni)
			}
		}
		if err := checkTreeShape(tree); err != nil {
			return nil, fmt.Errorf("model %s: tree %d: %w", path, ti, err)
		}
	}
	return &m, nil
}

// checkTreeShape walks a tree from its root and rejects any node reachable
// more than once. In a strict binary tree every node has one parent, so a
// revisit means a cycle or a shared subtree; either would make evaluate
// misbehave, a cycle fatally so.
func checkTreeShape(t modelTree) error {
	if len(t.Nodes) == 0 {
		return nil
	}
	visited := make([]bool, len(t.Nodes))
	stack := []int{0}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[i] {
			return fmt.Errorf("node %d is reachable twice, tree is not a strict binary tree", i)
		}
		visited[i] = true
		node := t.Nodes[i]
		if node.Leaf != nil {
			continue
		}
		stack = append(stack, node.Left, node.Right)
	}
	return nil
}

// score runs the ensemble over a feature vector. The vector's schema must be
// identical to the model's recorded schema; any deviation is a contract
// violation and fails the call instead of silently scoring garbage.
func (m *regressionModel) score(v models.FeatureVector) (float64, error) {
	if !models.SameSchema(v.Fields(), m.Features) {
		return 0, fmt.Errorf("feature vector schema does not match model %q input schema", m.Name)
	}
	total := m.Base
	for _, tree := range m.Trees {
		total += tree.evaluate(m.Features, v)
	}
	return total, nil
}

func (t modelTree) evaluate(fields []models.FeatureField, v models.FeatureVector) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for {
		node := t.Nodes[i]
		if node.Leaf != nil {
			return *node.Leaf
		}
		if fields[node.Feature].Categorical {
			if containsString(node.Categories, v.Cat(node.Feature)) {
				i = node.Left
			} else {
				i = node.Right
			}
			continue
		}
		if v.Num(node.Feature) < node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}

func containsString(set []string, s string) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

// Scorer is the scoring boundary the prediction path depends on.
type Scorer interface {
	ScoreItem(v models.FeatureVector) (float64, error)
	ScoreReceptacle(v models.FeatureVector) (float64, error)
}

// ModelService holds one loaded model per schema, lazily materialized on
// first use and cached for the process lifetime.
type ModelService struct {
	itemPath       string
	receptaclePath string

	itemOnce sync.Once
	item     *regressionModel
	itemErr  error

	receptacleOnce sync.Once
	receptacle     *regressionModel
	receptacleErr  error
}

func NewModelService(cfg config.DataConfig) *ModelService {
	return &ModelService{
		itemPath:       cfg.ItemModelPath,
		receptaclePath: cfg.ReceptacleModelPath,
	}
}

// ScoreItem scores an item feature vector, loading the item model on first
// call. The returned value is a duration in hours.
func (s *ModelService) ScoreItem(v models.FeatureVector) (float64, error) {
	s.itemOnce.Do(func() {
		s.item, s.itemErr = loadRegressionModel(s.itemPath)
	})
	if s.itemErr != nil {
		return 0, s.itemErr
	}
	return s.item.score(v)
}

// ScoreReceptacle scores a receptacle feature vector, loading the
// receptacle model on first call.
func (s *ModelService) ScoreReceptacle(v models.FeatureVector) (float64, error) {
	s.receptacleOnce.Do(func() {
		s.receptacle, s.receptacleErr = loadRegressionModel(s.receptaclePath)
	})
	if s.receptacleErr != nil {
		return 0, s.receptacleErr
	}
	return s.receptacle.score(v)
}
