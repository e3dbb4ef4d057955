package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Train",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "gosvm: Train: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "gosvm: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestModelErrorUnwrapsSentinel(t *testing.T) {
	err := NewModelError("svm.Train", "invalid problem", ErrSingleClass)
	if !Is(err, ErrSingleClass) {
		t.Fatal("ModelError should unwrap to ErrSingleClass")
	}
	if Is(err, ErrInfeasibleNu) {
		t.Fatal("ModelError must not match an unrelated sentinel")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("nu", "must be in (0, 1]", 1.5)

	var ve *ValidationError
	if !As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if ve.ParamName != "nu" || ve.Value != 1.5 {
		t.Errorf("unexpected fields: %+v", ve)
	}
	want := "gosvm: validation failed for parameter 'nu': must be in (0, 1] (got: 1.5)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidationErrorWithCause(t *testing.T) {
	err := NewValidationErrorWithCause("nu", "specified nu is infeasible", 0.9, ErrInfeasibleNu)
	if !Is(err, ErrInfeasibleNu) {
		t.Fatal("ValidationError should unwrap to its cause")
	}
	var ve *ValidationError
	if !As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("svm.NewProblem", 3, 2, 1)
	want := "gosvm: svm.NewProblem: dimension mismatch on axis 1 (features). Expected 3, got 2"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("SVC", "Predict")
	var nf *NotFittedError
	if !As(err, &nf) {
		t.Fatalf("expected *NotFittedError, got %T", err)
	}
	if !strings.Contains(err.Error(), "Call Fit() before using Predict()") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestConvergenceWarning(t *testing.T) {
	tests := []struct {
		name string
		w    *ConvergenceWarning
		want string
	}{
		{
			name: "with message",
			w:    NewConvergenceWarning("smo", 10, "max iterations reached"),
			want: "smo failed to converge after 10 iterations: max iterations reached",
		},
		{
			name: "without message",
			w:    NewConvergenceWarning("smo", 5, ""),
			want: "smo failed to converge after 5 iterations. Consider increasing max_iter or tol.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.w.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWarnRouting(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(nil)

	Warn(NewConvergenceWarning("smo", 1, ""))
	if len(got) != 1 {
		t.Fatalf("expected 1 warning through the handler, got %d", len(got))
	}

	// zerologが設定されている場合は優先される
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	SetZerologWarnFunc(func(w error) {
		if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
			logger.Warn().Object("warning", obj).Msg(w.Error())
			return
		}
		logger.Warn().Msg(w.Error())
	})
	defer SetZerologWarnFunc(nil)

	Warn(NewConvergenceWarning("smo", 2, "stalled"))
	if len(got) != 1 {
		t.Errorf("handler must not be called while zerolog is installed")
	}
	if !strings.Contains(buf.String(), `"type":"ConvergenceWarning"`) {
		t.Errorf("expected structured warning in zerolog output, got %s", buf.String())
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "loading fold")
	if !Is(wrapped, ErrEmptyData) {
		t.Error("wrapped error should match its cause")
	}
	wrappedf := Wrapf(ErrInfeasibleNu, "classes %d and %d", 1, 2)
	if !strings.Contains(wrappedf.Error(), "classes 1 and 2") {
		t.Errorf("unexpected message: %s", wrappedf.Error())
	}
}

func TestCheckNumericalStability(t *testing.T) {
	if err := CheckNumericalStability("alpha", []float64{0, 1, 2}, 3); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := CheckNumericalStability("alpha", []float64{0, math.NaN()}, 3)
	var ni *NumericalInstabilityError
	if !As(err, &ni) {
		t.Fatalf("expected *NumericalInstabilityError, got %v", err)
	}
	if ni.Iteration != 3 || len(ni.Values) != 1 {
		t.Errorf("unexpected fields: %+v", ni)
	}
}

func TestClipValue(t *testing.T) {
	if ClipValue(-1, 0, 1) != 0 || ClipValue(2, 0, 1) != 1 || ClipValue(0.5, 0, 1) != 0.5 {
		t.Error("ClipValue returned an out-of-range value")
	}
}
