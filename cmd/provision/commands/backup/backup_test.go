package backup

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"

	"github.com/thoreinstein/provision/internal/backup"
	"github.com/thoreinstein/provision/internal/errors"
)

func init() {
	color.NoColor = true
}

type fixedChooser struct {
	idx     int
	options []string
}

func (c *fixedChooser) Select(_ string, options []string) (int, error) {
	c.options = options
	return c.idx, nil
}

func newTestManager(t *testing.T, snapshots ...string) (*backup.Manager, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	mgr := backup.NewManager(
		backup.WithFs(fs),
		backup.WithBackupDir("/state/backups"),
		backup.WithClock(func() time.Time { now = now.Add(time.Minute); return now }),
	)
	for _, content := range snapshots {
		if err := afero.WriteFile(fs, "/home/dev/.bashrc", []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := mgr.Backup([]string{"/home/dev/.bashrc"}); err != nil {
			t.Fatalf("creating backup: %v", err)
		}
	}
	return mgr, fs
}

func TestRunList_Empty(t *testing.T) {
	mgr, _ := newTestManager(t)

	var buf bytes.Buffer
	if err := runList(&buf, mgr, false); err != nil {
		t.Fatalf("runList: %v", err)
	}
	if !strings.Contains(buf.String(), "no backups available") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunList_JSON(t *testing.T) {
	mgr, _ := newTestManager(t, "one\n", "two\n")

	var buf bytes.Buffer
	if err := runList(&buf, mgr, true); err != nil {
		t.Fatalf("runList: %v", err)
	}

	var out []infoOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(out))
	}
	if !out[0].CreatedAt.After(out[1].CreatedAt) {
		t.Error("snapshots should be newest first")
	}
	if len(out[0].Files) != 1 || out[0].Files[0] != "/home/dev/.bashrc" {
		t.Errorf("files = %v", out[0].Files)
	}
}

func TestRunRestore_Selects(t *testing.T) {
	mgr, fs := newTestManager(t, "original\n", "edited\n")
	if err := afero.WriteFile(fs, "/home/dev/.bashrc", []byte("broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sel := &fixedChooser{idx: 1}
	var buf bytes.Buffer
	if err := runRestore(&buf, mgr, sel, ""); err != nil {
		t.Fatalf("runRestore: %v", err)
	}
	if len(sel.options) != 2 {
		t.Errorf("offered %d snapshots, want 2", len(sel.options))
	}

	data, err := afero.ReadFile(fs, "/home/dev/.bashrc")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "original\n" {
		t.Errorf("restored content = %q, want the older snapshot", data)
	}
	if buf.String() != "restored /home/dev/.bashrc\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRunRestore_UnknownID(t *testing.T) {
	mgr, _ := newTestManager(t, "one\n")

	err := runRestore(&bytes.Buffer{}, mgr, &fixedChooser{}, "19990101T000000")
	if !errors.Is(err, backup.ErrNoBackupsFound) {
		t.Errorf("err = %v, want ErrNoBackupsFound", err)
	}
	if errors.ExitCode(err) != errors.ExitUser {
		t.Errorf("exit code = %d", errors.ExitCode(err))
	}
}

func TestRunPrune(t *testing.T) {
	mgr, fs := newTestManager(t, "1\n", "2\n", "3\n")
	keep := backup.NewManager(backup.WithFs(fs), backup.WithBackupDir(mgr.Dir()), backup.WithRetentionCount(1))

	var buf bytes.Buffer
	if err := runPrune(&buf, keep); err != nil {
		t.Fatalf("runPrune: %v", err)
	}
	if buf.String() != "removed 2 snapshots, 1 kept\n" {
		t.Errorf("output = %q", buf.String())
	}
}
