package vfs

import (
	"github.com/S1riyS/happyphone/server/internal/models"
)

const (
	SysDir        = "/sys"
	OSVersionPath = "/sys/os_version"
	OSBranchPath  = "/sys/os_branch"
	OSDir         = "/sys/os"
	PkgsDir       = "/sys/pkgs"
	DefVarsPath   = "/sys/os/.def-vars"

	DefaultOSVersion = "1.0.0"
	DefaultOSBranch  = "stable"
	DefaultDefVars   = "$SYS=/sys"
)

// SystemFiles are the fixed read-only, hidden entries of /sys/os.
var SystemFiles = []string{
	"happy phone.bin",
	"ssh.bin",
	"handler.hpo",
	"peform.hpo",
	"programs.hpo",
}

// NewFilesystem returns the skeleton every new user starts from.
func NewFilesystem() *models.UserFilesystem {
	root := models.NewDir()
	sys := models.NewDir()
	root.SetChild("sys", sys)

	sys.SetChild("os_version", models.NewFile(DefaultOSVersion))
	sys.SetChild("os_branch", models.NewFile(DefaultOSBranch))
	sys.SetChild("pkgs", models.NewDir())

	osDir := models.NewDir()
	sys.SetChild("os", osDir)
	for _, name := range SystemFiles {
		osDir.SetChild(name, models.NewSystemFile(""))
	}
	osDir.SetChild(".def-vars", models.NewSystemFile(DefaultDefVars))

	return &models.UserFilesystem{Root: root, CurrentDir: "/"}
}

// Heal recreates any missing part of the /sys skeleton without touching
// entries that exist. It reports whether anything changed.
func Heal(fs *models.UserFilesystem) bool {
	changed := false

	if !fs.Root.IsDir() {
		fs.Root = models.NewDir()
		changed = true
	}
	if fs.CurrentDir == "" {
		fs.CurrentDir = "/"
		changed = true
	}

	sys := ensureDir(fs.Root, "sys", &changed)

	if sys.Child("os_version") == nil {
		sys.SetChild("os_version", models.NewFile(DefaultOSVersion))
		changed = true
	}
	if sys.Child("os_branch") == nil {
		sys.SetChild("os_branch", models.NewFile(DefaultOSBranch))
		changed = true
	}
	ensureDir(sys, "pkgs", &changed)

	osDir := ensureDir(sys, "os", &changed)
	for _, name := range SystemFiles {
		if osDir.Child(name) == nil {
			osDir.SetChild(name, models.NewSystemFile(""))
			changed = true
		}
	}
	if osDir.Child(".def-vars") == nil {
		osDir.SetChild(".def-vars", models.NewSystemFile(DefaultDefVars))
		changed = true
	}

	return changed
}

func ensureDir(parent *models.Node, name string, changed *bool) *models.Node {
	child := parent.Child(name)
	if child.IsDir() {
		return child
	}
	child = models.NewDir()
	parent.SetChild(name, child)
	*changed = true
	return child
}
