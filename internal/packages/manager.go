package packages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/S1riyS/happyphone/server/internal/download"
	"github.com/S1riyS/happyphone/server/internal/metrics"
	"github.com/S1riyS/happyphone/server/internal/models"
	"github.com/S1riyS/happyphone/server/internal/network"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
	"github.com/S1riyS/happyphone/server/internal/vfs"
	"github.com/S1riyS/happyphone/server/pkg/logging"
	"github.com/S1riyS/happyphone/server/pkg/logging/slogext"
)

const (
	ListPageSize   = 5
	SearchPageSize = 6

	recordSuffix = ".pkg"
)

type Manager struct {
	catalog   *Catalog
	downloads *download.Registry
	network   network.ConfigService
}

func NewManager(catalog *Catalog, downloads *download.Registry, netConfigs network.ConfigService) *Manager {
	return &Manager{
		catalog:   catalog,
		downloads: downloads,
		network:   netConfigs,
	}
}

func (m *Manager) Catalog() *Catalog {
	return m.catalog
}

// Release reads the OS version and branch stored in the user's tree.
func Release(store *vfs.Store) download.Release {
	return download.Release{
		Version: strings.TrimSpace(store.ReadSystem(vfs.OSVersionPath, vfs.DefaultOSVersion)),
		Branch:  strings.TrimSpace(store.ReadSystem(vfs.OSBranchPath, vfs.DefaultOSBranch)),
	}
}

func RecordPath(name string) string {
	return vfs.ChildPath(vfs.PkgsDir, name+recordSuffix)
}

// IsInstalled reports whether the package's record exists.
func IsInstalled(store *vfs.Store, name string) bool {
	node := store.Stat(RecordPath(name))
	return node != nil && !node.IsDir()
}

// Installed lists installed package names in alphabetical order.
func Installed(store *vfs.Store) []string {
	var names []string
	for _, entry := range store.DirNames(vfs.PkgsDir) {
		if name, ok := strings.CutSuffix(entry, recordSuffix); ok && name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Unavailable explains why name cannot be installed on release.
func (m *Manager) Unavailable(name string, release download.Release) *kerrors.Error {
	if _, ok := m.catalog.Lookup(name); !ok {
		return kerrors.New(kerrors.PackageNotFound, "Package '%s' not found.", name)
	}
	if minVersion, ok := m.catalog.MinVersion(name, release.Branch); ok {
		return kerrors.New(kerrors.VersionTooLow, "Package '%s' requires %s version %s or later.", name, release.Branch, minVersion)
	}
	return kerrors.New(kerrors.BranchUnsupported, "Package '%s' is not available on the %s branch.", name, release.Branch)
}

// Install starts the download of a package. A download that finishes at once
// writes the record immediately.
func (m *Manager) Install(ctx context.Context, userID string, store *vfs.Store, name string) (string, error) {
	const op = "packages.Manager.Install"
	logger := logging.GetLoggerFromContextWithOp(ctx, op).With(slog.String("package", name))

	if IsInstalled(store, name) {
		return "", kerrors.New(kerrors.PackageAlreadyInstalled, "Package '%s' is already installed.", name)
	}

	release := Release(store)
	if !m.catalog.IsAvailable(name, release.Version, release.Branch) {
		return "", m.Unavailable(name, release)
	}

	cfg, err := m.network.Get(ctx, userID)
	if err != nil {
		logger.Error("Failed to get network config", slogext.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	p := m.downloads.Start(userID, name, m.catalog.SizeKB(name), release, cfg)
	metrics.SetActiveDownloads(m.downloads.Len())
	if !p.Done {
		logger.Debug("Download started")
		return p.Message, nil
	}

	if err := m.complete(store, p); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	logger.Debug("Package installed")
	return p.Message + "\nInstalled package: " + name, nil
}

// Remove cancels any running download of the package and deletes its record.
func (m *Manager) Remove(ctx context.Context, userID string, store *vfs.Store, name string) (string, error) {
	const op = "packages.Manager.Remove"
	logger := logging.GetLoggerFromContextWithOp(ctx, op).With(slog.String("package", name))

	cancelled := m.downloads.Cancel(userID, name)
	metrics.SetActiveDownloads(m.downloads.Len())

	if !store.DeleteFile(RecordPath(name)) {
		if cancelled {
			logger.Debug("Download cancelled")
			return "Cancelled download of " + name, nil
		}
		return "", kerrors.New(kerrors.PackageNotFound, "Package not found: %s", name)
	}

	metrics.RecordPackageRemoval(name)
	logger.Debug("Package removed")
	return "Removed package: " + name, nil
}

// List renders one page of installed packages.
func (m *Manager) List(store *vfs.Store, page int) (string, error) {
	names := Installed(store)

	items, total, err := paginate(names, page, ListPageSize)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return fmt.Sprintf("No installed packages on page %d", page), nil
	}
	return fmt.Sprintf("Installed Packages (Page %d/%d):\n%s", page, total, strings.Join(items, "\n")), nil
}

// Search renders one page of packages available on the current release whose
// name contains query, ignoring case.
func (m *Manager) Search(store *vfs.Store, query string, page int) (string, error) {
	release := Release(store)
	query = strings.ToLower(query)

	var matches []string
	for _, name := range m.catalog.Available(release.Version, release.Branch) {
		if query == "" || strings.Contains(strings.ToLower(name), query) {
			matches = append(matches, name)
		}
	}

	label := query
	if label == "" {
		label = "all"
	}

	items, total, err := paginate(matches, page, SearchPageSize)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return fmt.Sprintf("No matching packages found for \"%s\" on page %d", label, page), nil
	}
	return fmt.Sprintf("Search Results for \"%s\" (%s branch, v%s) (Page %d/%d):\n%s",
		label, release.Branch, release.Version, page, total, strings.Join(items, "\n")), nil
}

// Branches lists every branch with its version and marks the current one.
func (m *Manager) Branches(store *vfs.Store) string {
	current := Release(store).Branch

	lines := []string{"Available branches:"}
	for _, b := range m.catalog.Branches() {
		line := b.Name + ": " + b.Version
		if b.Name == current {
			line += " (current)"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Upgrade moves the system to the latest version of target and restores the
// system files.
func (m *Manager) Upgrade(ctx context.Context, store *vfs.Store, target string) (string, error) {
	const op = "packages.Manager.Upgrade"
	logger := logging.GetLoggerFromContextWithOp(ctx, op)

	if target == "" {
		target = BranchStable
	}
	branch, ok := m.catalog.Branch(target)
	if !ok {
		return "", kerrors.New(kerrors.UnknownBranch, "Unknown branch '%s'. Available branches: %s",
			target, strings.Join(m.catalog.BranchNames(), ", "))
	}

	current := Release(store)
	if current.Version == branch.Version && current.Branch == branch.Name {
		return fmt.Sprintf("Your system is already up to date on branch '%s'.", branch.Name), nil
	}

	downgrade := current.Branch == BranchUnstable && branch.Name == BranchStable &&
		CompareVersions(current.Version, branch.Version) > 0

	if err := store.PutFile(vfs.OSVersionPath, branch.Version); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := store.PutFile(vfs.OSBranchPath, branch.Name); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	store.Heal()

	logger.Info("System release changed",
		slog.String("from", current.Branch+"/"+current.Version),
		slog.String("to", branch.Name+"/"+branch.Version),
	)

	if downgrade {
		return fmt.Sprintf("System downgraded from %s (%s) to %s (%s). Note: Some features may no longer be available.",
			current.Branch, current.Version, branch.Name, branch.Version), nil
	}
	verb := "upgraded"
	if current.Version == branch.Version {
		verb = "switched"
	}
	return fmt.Sprintf("System %s successfully to version %s (%s branch).", verb, branch.Version, branch.Name), nil
}

// Update is the state of one download after a poll.
type Update struct {
	Package string
	Message string
	Done    bool
}

// Poll advances the user's downloads by one tick each and writes the records
// of finished ones. Finished downloads stay pending until Settle.
func (m *Manager) Poll(ctx context.Context, userID string, store *vfs.Store) ([]Update, error) {
	const op = "packages.Manager.Poll"

	progress := m.downloads.Tick(userID)
	if len(progress) == 0 {
		return nil, nil
	}
	defer metrics.SetActiveDownloads(m.downloads.Len())

	updates := make([]Update, 0, len(progress))
	for _, p := range progress {
		if !p.Done {
			updates = append(updates, Update{Package: p.Package, Message: p.Message})
			continue
		}
		if err := m.complete(store, p); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logging.GetLoggerFromContextWithOp(ctx, op).Debug("Package installed", slog.String("package", p.Package))
		updates = append(updates, Update{
			Package: p.Package,
			Message: p.Message + "\nInstalled package: " + p.Package,
			Done:    true,
		})
	}
	return updates, nil
}

// Settle forgets the downloads Poll finished once the store holding their
// records is saved. Otherwise they are reported again by the next Poll.
func (m *Manager) Settle(userID string, saved bool) {
	if saved {
		m.downloads.Finish(userID)
		return
	}
	if m.downloads.Reopen(userID) > 0 {
		metrics.SetActiveDownloads(m.downloads.Len())
	}
}

// Active lists the user's in-flight downloads.
func (m *Manager) Active(userID string) []string {
	return m.downloads.Active(userID)
}

// Reconfigure re-times the user's downloads after a network change.
func (m *Manager) Reconfigure(userID string, cfg models.NetworkConfig) int {
	return m.downloads.Recalculate(userID, cfg)
}

func (m *Manager) complete(store *vfs.Store, p download.Progress) error {
	record := fmt.Sprintf("Package: %s\nVersion: %s\nBranch: %s", p.Package, p.Release.Version, p.Release.Branch)
	if err := store.PutFile(RecordPath(p.Package), record); err != nil {
		return err
	}
	metrics.RecordPackageInstall(p.Package)
	return nil
}

func paginate(items []string, page, size int) ([]string, int, error) {
	total := max(1, (len(items)+size-1)/size)
	if page < 1 || page > total {
		return nil, total, kerrors.New(kerrors.InvalidPageNumber, "Invalid page number. Valid range: 1-%d", total)
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	return items[start:end], total, nil
}
