package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/S1riyS/happyphone/server/internal/download"
	"github.com/S1riyS/happyphone/server/internal/network"
	"github.com/S1riyS/happyphone/server/internal/packages"
	"github.com/S1riyS/happyphone/server/internal/pkg/kerrors"
	"github.com/S1riyS/happyphone/server/internal/repository"
)

type halfRand struct{}

func (halfRand) Float64() float64 { return 0.5 }

var errStorageDown = errors.New("storage unavailable")

// switchTx fails every transaction while down is set.
type switchTx struct {
	down bool
}

func (tx *switchTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx.down {
		return errStorageDown
	}
	return fn(ctx)
}

type testEnv struct {
	svc     TerminalService
	history repository.HistoryRepository
	tx      *switchTx
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	blobs := repository.NewMemoryBlobStore()
	env := &testEnv{
		history: repository.NewHistoryRepository(blobs),
		tx:      &switchTx{},
		now:     time.Unix(1700000000, 0),
	}

	netConfigs := network.NewConfigService(repository.NewNetworkRepository(blobs))
	reg := download.NewRegistry(func() time.Time { return env.now }, halfRand{})
	env.svc = NewTerminalService(
		env.tx,
		repository.NewFilesystemRepository(blobs),
		env.history,
		netConfigs,
		packages.NewManager(packages.DefaultCatalog(), reg, netConfigs),
		Options{Hostname: "happyphone", HistorySize: 16, MaxContentLength: 100},
	)
	return env
}

func (e *testEnv) exec(t *testing.T, line string) *Response {
	t.Helper()
	resp, err := e.svc.Execute(context.Background(), Request{UserID: "u1", DisplayName: "tester", Line: line})
	if err != nil {
		t.Fatalf("Execute(%q): %v", line, err)
	}
	return resp
}

func serviceCode(t *testing.T, err error) kerrors.Kind {
	t.Helper()
	var serr *ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("error %v is not a *ServiceError", err)
	}
	return serr.GetCode()
}

func TestExecuteAppendsPromptAndOutput(t *testing.T) {
	env := newTestEnv(t)

	env.exec(t, "mkdir docs")
	resp := env.exec(t, "cd docs && touch a.txt")

	want := []string{
		"tester@happyphone:/$ mkdir docs",
		"Created directory: /docs",
		"tester@happyphone:/$ cd docs && touch a.txt",
		"/docs\nCreated file: /docs/a.txt",
	}
	if len(resp.History) != len(want) {
		t.Fatalf("history = %q, want %q", resp.History, want)
	}
	for i := range want {
		if resp.History[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, resp.History[i], want[i])
		}
	}
	if resp.Output != strings.Join(want, "\n") {
		t.Errorf("output = %q", resp.Output)
	}

	resp = env.exec(t, "ls")
	if got := resp.History[len(resp.History)-2]; got != "tester@happyphone:/docs$ ls" {
		t.Errorf("prompt = %q", got)
	}
}

func TestExecuteRejectsEmptyLine(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Execute(context.Background(), Request{UserID: "u1", Line: "   "})
	if code := serviceCode(t, err); code != kerrors.MissingArgument {
		t.Fatalf("code = %v", code)
	}
}

func TestHistoryIsCapped(t *testing.T) {
	env := newTestEnv(t)

	var resp *Response
	for i := 0; i < 10; i++ {
		resp = env.exec(t, "ls")
	}
	if len(resp.History) != 16 {
		t.Fatalf("history length = %d, want 16", len(resp.History))
	}

	if err := env.svc.ClearHistory(context.Background(), "u1"); err != nil {
		t.Fatal(err)
	}
	history, err := env.svc.ViewHistory(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatalf("history after clear = %q", history)
	}
}

func TestEditFileRequiresEditor(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.EditFile(context.Background(), EditRequest{UserID: "u1", Path: "notes.txt", Content: "x"})
	if code := serviceCode(t, err); code != kerrors.PackageNotInstalled {
		t.Fatalf("code = %v", code)
	}
	if !strings.Contains(err.Error(), `The "edit" package is not installed`) {
		t.Errorf("message = %q", err.Error())
	}

	_, err = env.svc.EditBuffer(context.Background(), "u1", "notes.txt")
	if code := serviceCode(t, err); code != kerrors.PackageNotInstalled {
		t.Fatalf("buffer code = %v", code)
	}
}

func TestEditFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.exec(t, "net off && pkg install edit")

	t.Run("read-only target", func(t *testing.T) {
		before, _ := env.svc.ViewHistory(ctx, "u1")

		_, err := env.svc.EditFile(ctx, EditRequest{UserID: "u1", DisplayName: "tester", Path: "/sys/os/ssh.bin", Content: "patched"})
		if code := serviceCode(t, err); code != kerrors.PermissionDenied {
			t.Fatalf("code = %v", code)
		}
		if err.Error() != "Error: This file is read-only and cannot be edited." {
			t.Errorf("message = %q", err.Error())
		}

		after, _ := env.svc.ViewHistory(ctx, "u1")
		if len(after) != len(before) {
			t.Errorf("history changed on rejected edit")
		}
	})

	t.Run("too large", func(t *testing.T) {
		_, err := env.svc.EditFile(ctx, EditRequest{UserID: "u1", Path: "big.txt", Content: strings.Repeat("a", 101)})
		if code := serviceCode(t, err); code != kerrors.ContentTooLarge {
			t.Fatalf("code = %v", code)
		}
	})

	t.Run("writes and records", func(t *testing.T) {
		resp, err := env.svc.EditFile(ctx, EditRequest{UserID: "u1", DisplayName: "tester", Path: "notes.txt", Content: "hello"})
		if err != nil {
			t.Fatal(err)
		}
		n := len(resp.History)
		if resp.History[n-2] != "tester@happyphone:/$ edit-file notes.txt" || resp.History[n-1] != "Updated file: /notes.txt" {
			t.Errorf("history tail = %q", resp.History[n-2:])
		}

		buf, err := env.svc.EditBuffer(ctx, "u1", "notes.txt")
		if err != nil {
			t.Fatal(err)
		}
		if buf.Path != "/notes.txt" || buf.Content != "hello" {
			t.Errorf("buffer = %+v", buf)
		}
	})
}

func TestPollFinishesDownloads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	resp := env.exec(t, "pkg install echo")
	if len(resp.ActiveDownloads) != 1 || resp.ActiveDownloads[0] != "echo" {
		t.Fatalf("active = %q", resp.ActiveDownloads)
	}

	var res *PollResult
	for i := 0; i < download.StepCount; i++ {
		env.now = env.now.Add(time.Second)
		var err error
		res, err = env.svc.Poll(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		if len(res.ActiveDownloads) == 0 {
			break
		}
	}
	if len(res.ActiveDownloads) != 0 {
		t.Fatalf("download still active: %q", res.ActiveDownloads)
	}

	history, err := env.svc.ViewHistory(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if last := history[len(history)-1]; !strings.HasSuffix(last, "Installed package: echo") {
		t.Errorf("last history entry = %q", last)
	}

	resp = env.exec(t, "echo hi")
	if got := resp.History[len(resp.History)-1]; got != "hi" {
		t.Errorf("echo output = %q", got)
	}

	res, err = env.svc.Poll(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Lines) != 0 {
		t.Errorf("idle poll lines = %q", res.Lines)
	}
}

func TestDeletedSystemFileStaysGoneUntilUpgrade(t *testing.T) {
	env := newTestEnv(t)

	steps := []struct {
		line    string
		want    string
		listing bool // whether ssh.bin should appear in the result
	}{
		{line: "ls /sys/os", listing: true},
		{line: "rm /sys/os/ssh.bin", want: "Removed: /sys/os/ssh.bin"},
		{line: "rm /sys/os/.def-vars", want: "Removed: /sys/os/.def-vars"},
		{line: "ls /sys/os"},
		{line: "cat /sys/os/ssh.bin", want: "cat: /sys/os/ssh.bin: No such file"},
		{line: "cd $SYS", want: "cd: /$SYS: No such directory"},
		{line: "pkg upgrade"},
		{line: "ls /sys/os", listing: true},
		{line: "cd $SYS", want: "/sys"},
	}
	for _, step := range steps {
		resp := env.exec(t, step.line)
		if step.want != "" && resp.Result != step.want {
			t.Fatalf("%q: result = %q, want %q", step.line, resp.Result, step.want)
		}
		if strings.HasPrefix(step.line, "ls") && strings.Contains(resp.Result, "ssh.bin") != step.listing {
			t.Fatalf("%q: result = %q, ssh.bin listed = %v", step.line, resp.Result, !step.listing)
		}
	}
}

func TestFinishedDownloadSurvivesFailedSave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.exec(t, "pkg install echo")

	env.tx.down = true
	for i := 0; i < download.StepCount+1; i++ {
		env.now = env.now.Add(time.Second)
		if _, err := env.svc.Poll(ctx, "u1"); !errors.Is(err, errStorageDown) {
			t.Fatalf("poll %d: err = %v", i, err)
		}
	}
	if _, err := env.svc.Execute(ctx, Request{UserID: "u1", DisplayName: "tester", Line: "ls"}); !errors.Is(err, errStorageDown) {
		t.Fatalf("execute: err = %v", err)
	}

	env.tx.down = false
	resp := env.exec(t, "echo hi")
	if !strings.Contains(resp.Result, "Installed package: echo") || !strings.HasSuffix(resp.Result, "\nhi") {
		t.Fatalf("result = %q", resp.Result)
	}
	if len(resp.ActiveDownloads) != 0 {
		t.Errorf("active = %q", resp.ActiveDownloads)
	}

	resp = env.exec(t, "echo again")
	if resp.Result != "again" {
		t.Errorf("install reported twice: %q", resp.Result)
	}
}

func TestUserLocksAreReleased(t *testing.T) {
	env := newTestEnv(t)
	svc := env.svc.(*terminalService)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for _, user := range []string{"u1", "u2", "u3", "u4"} {
		for n := 0; n < 4; n++ {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				if _, err := svc.Execute(ctx, Request{UserID: user, DisplayName: user, Line: "mkdir d"}); err != nil {
					errs <- err
				}
			}(user)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for _, user := range []string{"u1", "u2", "u3", "u4"} {
		history, err := svc.ViewHistory(ctx, user)
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != 8 {
			t.Errorf("%s: %d history entries, want 8", user, len(history))
		}
	}
	if err := svc.ClearHistory(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	svc.locksMu.Lock()
	defer svc.locksMu.Unlock()
	if len(svc.locks) != 0 {
		t.Errorf("%d user locks left after all requests returned", len(svc.locks))
	}
}
