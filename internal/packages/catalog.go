// Package packages implements the package manager: a catalog gated by OS
// version and branch, and installs that run through simulated downloads.
package packages

import (
	"strconv"
	"strings"
)

const (
	BranchStable   = "stable"
	BranchUnstable = "unstable"

	defaultSizeKB = 1024
)

type Branch struct {
	Name    string
	Version string
}

// Definition is one installable package. MinVersions maps a branch to the
// lowest OS version on that branch the package runs on.
type Definition struct {
	Name        string
	MinVersions map[string]string
	SizeKB      float64
}

type Catalog struct {
	branches []Branch
	packages []Definition
	byName   map[string]int
}

func NewCatalog(branches []Branch, defs []Definition) *Catalog {
	c := &Catalog{
		branches: branches,
		packages: defs,
		byName:   make(map[string]int, len(defs)),
	}
	for i, d := range defs {
		c.byName[d.Name] = i
	}
	return c
}

// DefaultCatalog returns the built-in branches and packages.
func DefaultCatalog() *Catalog {
	everywhere := func(name string, sizeKB float64) Definition {
		return Definition{
			Name:        name,
			MinVersions: map[string]string{BranchStable: "1.0.0", BranchUnstable: "1.0.0"},
			SizeKB:      sizeKB,
		}
	}

	return NewCatalog(
		[]Branch{
			{Name: BranchStable, Version: "1.0.0.1"},
			{Name: BranchUnstable, Version: "1.0.0.2"},
		},
		[]Definition{
			everywhere("echo", 472),
			everywhere("edit", 8400),
			everywhere("test", 407),
			everywhere("edit-file", 8400),
			everywhere("happyphone", 413),
			everywhere("happybrowser", 0),
		},
	)
}

func (c *Catalog) Lookup(name string) (Definition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Definition{}, false
	}
	return c.packages[i], true
}

// MinVersion returns the minimum OS version of name on branch.
func (c *Catalog) MinVersion(name, branch string) (string, bool) {
	def, ok := c.Lookup(name)
	if !ok {
		return "", false
	}
	v, ok := def.MinVersions[branch]
	return v, ok
}

// IsAvailable reports whether name can be installed on the given release.
func (c *Catalog) IsAvailable(name, version, branch string) bool {
	minVersion, ok := c.MinVersion(name, branch)
	if !ok {
		return false
	}
	return CompareVersions(version, minVersion) >= 0
}

// Available returns the packages installable on a release, in catalog order.
func (c *Catalog) Available(version, branch string) []string {
	var names []string
	for _, d := range c.packages {
		if c.IsAvailable(d.Name, version, branch) {
			names = append(names, d.Name)
		}
	}
	return names
}

// SizeKB is the simulated download size of a package.
func (c *Catalog) SizeKB(name string) float64 {
	def, ok := c.Lookup(name)
	if !ok || def.SizeKB <= 0 {
		return defaultSizeKB
	}
	return def.SizeKB
}

func (c *Catalog) Branches() []Branch {
	return c.branches
}

func (c *Catalog) Branch(name string) (Branch, bool) {
	for _, b := range c.branches {
		if b.Name == name {
			return b, true
		}
	}
	return Branch{}, false
}

func (c *Catalog) BranchNames() []string {
	names := make([]string, 0, len(c.branches))
	for _, b := range c.branches {
		names = append(names, b.Name)
	}
	return names
}

// CompareVersions compares dot-separated numeric versions component by
// component. Missing and non-numeric components count as 0.
func CompareVersions(a, b string) int {
	ap := strings.Split(a, ".")
	bp := strings.Split(b, ".")

	for i := range max(len(ap), len(bp)) {
		x, y := component(ap, i), component(bp, i)
		switch {
		case x > y:
			return 1
		case x < y:
			return -1
		}
	}
	return 0
}

func component(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil {
		return 0
	}
	return n
}
