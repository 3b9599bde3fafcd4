package vfs

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		cwd, target, want string
	}{
		{"/a/b", "../c", "/a/c"},
		{"/", "..", "/"},
		{"/", "../../..", "/"},
		{"/a", "/b/c", "/b/c"},
		{"/a", "./b/./c/", "/a/b/c"},
		{"/a/b", "", "/a/b"},
		{"/a//b", "c", "/a/b/c"},
		{"/a", "b/../../..", "/"},
		{"/", "my file.txt", "/my file.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.cwd+"+"+tt.target, func(t *testing.T) {
			if got := Resolve(tt.cwd, tt.target); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.cwd, tt.target, got, tt.want)
			}
		})
	}
}

func TestParentDir(t *testing.T) {
	tests := map[string]string{
		"/":      "/",
		"/a":     "/",
		"/a/b/c": "/a/b",
	}
	for in, want := range tests {
		if got := ParentDir(in); got != want {
			t.Errorf("ParentDir(%q) = %q, want %q", in, got, want)
		}
	}
}
