package weather

import "testing"

func TestBatchTree(t *testing.T) {
	b := Batch{Deltas: []Delta{
		{Path: "environment.forecast.temperature", Value: 292.0},
		{Path: "environment.forecast.temperature.minimum", Value: 290.0},
		{Path: "environment.forecast.wind.speed", Value: 5.0},
		{Path: "environment.outside.pressure", Value: nil},
	}}

	tree := b.Tree()
	env := tree["environment"].(map[string]any)
	forecast := env["forecast"].(map[string]any)

	temp := forecast["temperature"].(map[string]any)
	if temp["value"] != 292.0 || temp["minimum"] != 290.0 {
		t.Fatalf("temperature node = %v", temp)
	}
	if wind := forecast["wind"].(map[string]any); wind["speed"] != 5.0 {
		t.Fatalf("wind node = %v", wind)
	}
	outside := env["outside"].(map[string]any)
	if v, ok := outside["pressure"]; !ok || v != nil {
		t.Fatalf("outside node = %v", outside)
	}
}

func TestBatchTreeBranchBeforeLeaf(t *testing.T) {
	b := Batch{Deltas: []Delta{
		{Path: "a.b.c", Value: 1.0},
		{Path: "a.b", Value: 2.0},
	}}
	node := b.Tree()["a"].(map[string]any)["b"].(map[string]any)
	if node["c"] != 1.0 || node["value"] != 2.0 {
		t.Fatalf("node = %v", node)
	}
}
