package tensor

import (
	"testing"

	"gonum.org/v1/gonum/floats"
)

// CompareTensorsApprox checks if two tensors are approximately equal
// element-wise, tolerating either an absolute or a relative difference of
// epsilon (gonum's floats.EqualWithinAbsOrRel).
func CompareTensorsApprox[T Numeric](t *testing.T, actual, expected *TensorNumeric[T], epsilon T) bool {
	t.Helper()
	if !actual.ShapeEquals(expected) {
		t.Errorf("tensor shapes do not match: actual %v, expected %v", actual.Shape(), expected.Shape())
		return false
	}

	actualData := actual.Data()
	expectedData := expected.Data()

	if len(actualData) != len(expectedData) {
		t.Errorf("tensor data lengths do not match: actual %d, expected %d", len(actualData), len(expectedData))
		return false
	}

	tol := float64(epsilon)
	ok := true

	for i := range actualData {
		if !floats.EqualWithinAbsOrRel(float64(actualData[i]), float64(expectedData[i]), tol, tol) {
			t.Errorf("tensor elements at index %d are not approximately equal: actual %v, expected %v, epsilon %v", i, actualData[i], expectedData[i], epsilon)
			ok = false
		}
	}

	return ok
}