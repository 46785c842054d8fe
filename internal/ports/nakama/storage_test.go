package nakama

import (
	"errors"
	"testing"
)

func TestIsVersionConflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"RejectedWrite", errors.New("Storage write rejected - version check failed."), true},
		{"StorageOutage", errors.New("context deadline exceeded"), false},
		{"PermissionError", errors.New("Storage write rejected - not found, version check failed, or permission denied."), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isVersionConflict(tc.err); got != tc.want {
				t.Errorf("isVersionConflict(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
