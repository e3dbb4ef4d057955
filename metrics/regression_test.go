package metrics

import (
	"math"
	"testing"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: []float64{1, 2, 3, 4, 5},
			yPred: []float64{1, 2, 3, 4, 5},
			want:  0,
		},
		{
			name:  "simple case",
			yTrue: []float64{1, 2, 3, 4},
			yPred: []float64{1.5, 2.5, 2.5, 3.5},
			want:  0.25,
		},
		{
			name:  "larger errors",
			yTrue: []float64{10, 20, 30},
			yPred: []float64{12, 18, 33},
			want:  17.0 / 3.0,
		},
		{
			name:    "dimension mismatch",
			yTrue:   []float64{1, 2, 3},
			yPred:   []float64{1, 2},
			wantErr: true,
		},
		{
			name:    "empty",
			yTrue:   []float64{},
			yPred:   []float64{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("MSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMAE(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}

	mae, err := MAE(yTrue, []float64{1, 3, 3, 2})
	if err != nil {
		t.Fatalf("MAE() error = %v", err)
	}
	if math.Abs(mae-0.75) > 1e-10 {
		t.Errorf("MAE() = %v, want 0.75", mae)
	}
}

func TestR2Score(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   []float64
		yPred   []float64
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect",
			yTrue: []float64{1, 2, 3},
			yPred: []float64{1, 2, 3},
			want:  1,
		},
		{
			name:  "mean predictor",
			yTrue: []float64{1, 2, 3},
			yPred: []float64{2, 2, 2},
			want:  0,
		},
		{
			name:    "no variance",
			yTrue:   []float64{5, 5, 5},
			yPred:   []float64{1, 2, 3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := R2Score(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("R2Score() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-10 {
				t.Errorf("R2Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSquaredCorrelation(t *testing.T) {
	got, err := SquaredCorrelation([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8})
	if err != nil {
		t.Fatalf("SquaredCorrelation() error = %v", err)
	}
	if math.Abs(got-1) > 1e-10 {
		t.Errorf("SquaredCorrelation() = %v, want 1", got)
	}

	if _, err := SquaredCorrelation([]float64{1, 2, 3}, []float64{1, 1, 1}); err == nil {
		t.Error("SquaredCorrelation() expected error for constant prediction")
	}
}

func BenchmarkMSE(b *testing.B) {
	n := 10000
	yTrue := make([]float64, n)
	yPred := make([]float64, n)
	for i := range yTrue {
		yTrue[i] = float64(i)
		yPred[i] = float64(i) + 0.5
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = MSE(yTrue, yPred)
	}
}
