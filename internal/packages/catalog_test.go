package packages

import "testing"

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.0.0", 0},
		{"1.0.0.1", "1.0.0", 1},
		{"1.0.0.1", "1.0.0.2", -1},
		{"1.10", "1.9", 1},
		{"2", "1.99.99", 1},
		{"0.9", "1", -1},
	}

	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsAvailableMonotonic(t *testing.T) {
	c := NewCatalog(
		[]Branch{{Name: BranchStable, Version: "2.0"}, {Name: BranchUnstable, Version: "2.1"}},
		[]Definition{
			{Name: "a", MinVersions: map[string]string{BranchStable: "1.0.0"}},
			{Name: "b", MinVersions: map[string]string{BranchStable: "1.2", BranchUnstable: "1.10"}},
			{Name: "c", MinVersions: map[string]string{BranchUnstable: "0.5"}},
		},
	)
	versions := []string{"0.1", "0.5", "1", "1.0.0.1", "1.2", "1.9", "1.10", "2.0", "10.0"}

	for _, pkg := range []string{"a", "b", "c", "missing"} {
		for _, branch := range c.BranchNames() {
			for i, v1 := range versions {
				for _, v2 := range versions[i:] {
					if c.IsAvailable(pkg, v1, branch) && !c.IsAvailable(pkg, v2, branch) {
						t.Errorf("%s on %s: available at %s but not at %s", pkg, branch, v1, v2)
					}
				}
			}
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	got := c.Available("1.0.0", BranchStable)
	want := []string{"echo", "edit", "test", "edit-file", "happyphone", "happybrowser"}
	if len(got) != len(want) {
		t.Fatalf("Available = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Available[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if c.SizeKB("echo") != 472 || c.SizeKB("happybrowser") != 1024 || c.SizeKB("nope") != 1024 {
		t.Error("unexpected package sizes")
	}
	if c.IsAvailable("echo", "0.9", BranchStable) {
		t.Error("echo available below its minimum version")
	}
}
