package utils

import (
	"math"
	"testing"
)

func TestCosineSimilarity_IdenticalVectors(t *testing.T) {
	v := []float32{0.5, 0.3, 0.8}
	got, err := CosineSimilarity(v, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(got)-1.0) > 1e-6 {
		t.Fatalf("expected similarity 1.0, got %f", got)
	}
}

func TestCosineSimilarity_OrthogonalVectors(t *testing.T) {
	got, err := CosineSimilarity([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(got)) > 1e-6 {
		t.Fatalf("expected similarity 0, got %f", got)
	}
}

func TestCosineSimilarity_OppositeVectors(t *testing.T) {
	got, err := CosineSimilarity([]float32{1, 2}, []float32{-1, -2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(float64(got)+1.0) > 1e-6 {
		t.Fatalf("expected similarity -1.0, got %f", got)
	}
}

func TestCosineSimilarity_DimensionMismatch(t *testing.T) {
	if _, err := CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2}); err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
}

func TestCosineSimilarity_EmptyVector(t *testing.T) {
	if _, err := CosineSimilarity(nil, []float32{1}); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	got, err := CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected similarity 0 for zero vector, got %f", got)
	}
}
