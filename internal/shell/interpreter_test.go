package shell

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/S1riyS/happyphone/server/internal/download"
	"github.com/S1riyS/happyphone/server/internal/models"
	"github.com/S1riyS/happyphone/server/internal/network"
	"github.com/S1riyS/happyphone/server/internal/packages"
	"github.com/S1riyS/happyphone/server/internal/vfs"
)

type netRepo struct {
	cfg models.NetworkConfig
}

func (r *netRepo) GetNetworkConfig(context.Context, string) (models.NetworkConfig, error) {
	return r.cfg, nil
}

func (r *netRepo) SaveNetworkConfig(_ context.Context, _ string, cfg models.NetworkConfig) error {
	r.cfg = cfg
	return nil
}

type fsRepo struct {
	saves int
}

func (r *fsRepo) GetFilesystem(context.Context, string) (*models.UserFilesystem, error) {
	return nil, nil
}

func (r *fsRepo) SaveFilesystem(context.Context, string, *models.UserFilesystem) error {
	r.saves++
	return nil
}

type halfRand struct{}

func (halfRand) Float64() float64 { return 0.5 }

func newTestEnv(t *testing.T) (*Interpreter, *Env, *fsRepo) {
	t.Helper()

	repo := &fsRepo{}
	store, err := vfs.Open(context.Background(), repo, "u1", 10000)
	if err != nil {
		t.Fatal(err)
	}

	netConfigs := network.NewConfigService(&netRepo{cfg: models.DefaultNetworkConfig()})
	reg := download.NewRegistry(func() time.Time { return time.Unix(1700000000, 0) }, halfRand{})

	env := &Env{
		UserID:      "u1",
		DisplayName: "tester",
		Store:       store,
		Packages:    packages.NewManager(packages.DefaultCatalog(), reg, netConfigs),
		Network:     netConfigs,
	}
	return NewInterpreter(), env, repo
}

func run(t *testing.T, i *Interpreter, env *Env, line string) Result {
	t.Helper()
	res, err := i.Run(context.Background(), env, line)
	if err != nil {
		t.Fatalf("Run(%q): %v", line, err)
	}
	return res
}

func TestCreateAndReadChain(t *testing.T) {
	i, env, repo := newTestEnv(t)

	res := run(t, i, env, "mkdir foo && touch foo/bar.txt && cat foo/bar.txt")
	want := []string{"Created directory: /foo", "Created file: /foo/bar.txt", "(empty file)"}
	if !reflect.DeepEqual(res.Outputs, want) {
		t.Fatalf("outputs = %q, want %q", res.Outputs, want)
	}
	if res.Halted {
		t.Error("chain reported halted")
	}
	if repo.saves != 2 {
		t.Errorf("saves = %d, want one per mutating sub-command", repo.saves)
	}
}

func TestChainHalts(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"cd nope && ls", []string{"cd: /nope: No such directory"}},
		{"frobnicate && ls", []string{"Command not found: frobnicate"}},
		{"echo hi && ls", []string{"Command 'echo' is available but not installed. Run 'pkg install echo' first."}},
		{"pkg upgrade --beta && ls", []string{"pkg: Unknown branch 'beta'. Available branches: stable, unstable"}},
		{"cat /missing && ls", []string{"cat: /missing: No such file"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			i, env, _ := newTestEnv(t)
			res := run(t, i, env, tt.line)
			if !res.Halted {
				t.Error("chain not halted")
			}
			if !reflect.DeepEqual(res.Outputs, tt.want) {
				t.Errorf("outputs = %q, want %q", res.Outputs, tt.want)
			}
		})
	}
}

func TestChainContinuesPastMissingParent(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"cat nodir/file && mkdir after", []string{"cat: Path not found: /nodir", "Created directory: /after"}},
		{"rm nodir/file && mkdir after", []string{"rm: Path not found: /nodir", "Created directory: /after"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			i, env, _ := newTestEnv(t)
			res := run(t, i, env, tt.line)
			if res.Halted {
				t.Error("chain halted")
			}
			if !reflect.DeepEqual(res.Outputs, tt.want) {
				t.Errorf("outputs = %q, want %q", res.Outputs, tt.want)
			}
		})
	}
}

func TestChainContinuesOnSoftErrors(t *testing.T) {
	i, env, _ := newTestEnv(t)

	res := run(t, i, env, "pkg install unknownpkg && TEST a 'b c'")
	want := []string{"pkg: Package 'unknownpkg' not found.", "Test command executed with args: a b c"}
	if !reflect.DeepEqual(res.Outputs, want) {
		t.Errorf("outputs = %q, want %q", res.Outputs, want)
	}
}

func TestVariableSubstitution(t *testing.T) {
	i, env, _ := newTestEnv(t)

	res := run(t, i, env, "cd $SYS && ls")
	if res.Line != "cd /sys && ls" {
		t.Errorf("line = %q", res.Line)
	}
	if res.Outputs[0] != "/sys" || !strings.Contains(res.Outputs[1], "os_version") {
		t.Errorf("outputs = %q", res.Outputs)
	}
}

func TestOfflineInstallThenList(t *testing.T) {
	i, env, _ := newTestEnv(t)

	res := run(t, i, env, "net off && pkg install edit && pkg list")
	if got := res.Outputs[len(res.Outputs)-1]; got != "Installed Packages (Page 1/1):\nedit" {
		t.Errorf("list = %q", got)
	}

	res = run(t, i, env, "edit notes.txt")
	if !strings.HasPrefix(res.Output(), `edit: Use the "edit-file" action`) {
		t.Errorf("edit = %q", res.Output())
	}
}

func TestUpgradeTwice(t *testing.T) {
	i, env, _ := newTestEnv(t)

	res := run(t, i, env, "pkg upgrade --unstable && pkg upgrade --unstable")
	want := []string{
		"System upgraded successfully to version 1.0.0.2 (unstable branch).",
		"Your system is already up to date on branch 'unstable'.",
	}
	if !reflect.DeepEqual(res.Outputs, want) {
		t.Errorf("outputs = %q, want %q", res.Outputs, want)
	}
}

func TestEchoRedirect(t *testing.T) {
	i, env, _ := newTestEnv(t)
	run(t, i, env, "net off && pkg install echo")

	res := run(t, i, env, "echo hello world > notes/a.txt && echo again >> notes/a.txt && cat notes/a.txt")
	want := []string{"Written to /notes/a.txt", "Written to /notes/a.txt", "hello worldagain"}
	if !reflect.DeepEqual(res.Outputs, want) {
		t.Errorf("outputs = %q, want %q", res.Outputs, want)
	}

	res = run(t, i, env, `echo "just print"`)
	if res.Output() != "just print" {
		t.Errorf("echo = %q", res.Output())
	}

	res = run(t, i, env, "echo x > /sys/os/ssh.bin")
	if res.Output() != "echo: /sys/os/ssh.bin: Permission denied" {
		t.Errorf("echo to system file = %q", res.Output())
	}
}

func TestNetCommands(t *testing.T) {
	i, env, _ := newTestEnv(t)

	tests := []struct {
		line, want string
	}{
		{"net", "Network: enabled\nSpeed: 500 Mbps\nLatency: 20 ms\nJitter: 0 ms\nPacket loss: 0%"},
		{"net speed 0", "net: Speed must be greater than 0"},
		{"net speed fast", "net: Invalid speed 'fast'"},
		{"net speed 12.5", "Network speed set to 12.5 Mbps"},
		{"net loss 150", "Packet loss set to 100%"},
		{"net latency -5", "Network latency set to 0 ms"},
		{"net jitter", "Usage: net jitter <value>"},
		{"net off", "Network simulation disabled"},
		{"net bogus", `net: Unknown setting 'bogus'. Use "show", "speed", "latency", "jitter", "loss", "on", "off", or "reset".`},
		{"net reset", "Network settings reset to defaults"},
	}
	for _, tt := range tests {
		if got := run(t, i, env, tt.line).Output(); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestNetChangeRecalculatesDownloads(t *testing.T) {
	i, env, _ := newTestEnv(t)
	run(t, i, env, "net speed 1")
	run(t, i, env, "pkg install edit")

	res := run(t, i, env, "net off")
	if res.Output() != "Network simulation disabled\nRecalculated 1 active download(s)" {
		t.Fatalf("net off = %q", res.Output())
	}

	res = run(t, i, env, "pkg status")
	if !strings.HasSuffix(res.Output(), "Installed package: edit") {
		t.Errorf("status = %q", res.Output())
	}
	if res := run(t, i, env, "pkg status"); res.Output() != "No active downloads." {
		t.Errorf("idle status = %q", res.Output())
	}
}

func TestPkgUsage(t *testing.T) {
	i, env, _ := newTestEnv(t)

	tests := map[string]string{
		"pkg":               `pkg: Missing subcommand. Use "install", "remove", "list", "search", "branches", or "upgrade".`,
		"pkg frob":          `pkg: Invalid subcommand. Use "install", "remove", "list", "search", "branches", or "upgrade".`,
		"pkg install":       "Usage: pkg install <package>",
		"pkg remove":        "Usage: pkg remove <package>",
		"pkg remove echo":   "pkg: Package not found: echo",
		"pkg list --page 3": "pkg: Invalid page number. Valid range: 1-1",
	}
	for line, want := range tests {
		if got := run(t, i, env, line).Output(); got != want {
			t.Errorf("%s = %q, want %q", line, got, want)
		}
	}
}
