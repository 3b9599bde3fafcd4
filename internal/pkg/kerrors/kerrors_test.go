package kerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := New(PathNotFound, "Path not found: %s", "/a")
	wrapped := fmt.Errorf("service: %w", base)

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", base, PathNotFound},
		{"wrapped", wrapped, PathNotFound},
		{"foreign", errors.New("boom"), Unknown},
		{"nil", nil, Unknown},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("%s: KindOf = %v, want %v", tt.name, got, tt.want)
		}
	}

	if !IsDomain(wrapped) {
		t.Error("wrapped domain error should be recognised")
	}
	if !Is(wrapped, PathNotFound) || Is(wrapped, FileExists) {
		t.Error("Is should match only the carried kind")
	}
}

func TestWithPrefix(t *testing.T) {
	err := New(NotADirectory, "Not a directory: /a").WithPrefix("touch")
	if err.Error() != "touch: Not a directory: /a" {
		t.Errorf("message = %q", err.Error())
	}
	if err.Kind != NotADirectory {
		t.Errorf("kind = %v", err.Kind)
	}
}

func TestKindString(t *testing.T) {
	if ContentTooLarge.String() != "ContentTooLarge" {
		t.Errorf("String() = %q", ContentTooLarge.String())
	}
	if Kind(999).String() != "Kind(999)" {
		t.Errorf("String() = %q", Kind(999).String())
	}
}
