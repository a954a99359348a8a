package cmd

import (
	"bytes"
	"strings"
	"testing"

	"carveout/internal/core"
	"carveout/internal/infra/persistence/memory"
	"carveout/pkg/domain"
)

// useMemoryStore routes every invocation in the test to one shared store and
// points the blob store at a temporary directory.
func useMemoryStore(t *testing.T) {
	t.Helper()
	shared := memory.NewStore()
	prev := openDocumentStore
	openDocumentStore = func(core.StorageDriver, string, string) (domain.DocumentStore, error) {
		return shared, nil
	}
	t.Cleanup(func() { openDocumentStore = prev })
	t.Setenv("CARVEOUT_BLOB_DRIVER", "fs")
	t.Setenv("CARVEOUT_BLOB_FS_ROOT", t.TempDir())
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, err := execute(t, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, errOut)
	}
	return out
}

func draw(t *testing.T, doc, points string) string {
	t.Helper()
	return strings.TrimSpace(mustExecute(t, "draw", doc, "--points", points, "--color", "#ffffff", "--width", "1"))
}

func TestNewRejectsDuplicates(t *testing.T) {
	useMemoryStore(t)
	if out := mustExecute(t, "new", "sketch"); out != "sketch\n" {
		t.Fatalf("unexpected output %q", out)
	}
	if _, _, err := execute(t, "new", "sketch"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	generated := strings.TrimSpace(mustExecute(t, "new"))
	if len(generated) != 36 {
		t.Fatalf("expected a uuid name, got %q", generated)
	}
	list := mustExecute(t, "list")
	if !strings.Contains(list, "sketch\t") || !strings.Contains(list, generated) {
		t.Fatalf("list missing documents:\n%s", list)
	}
	if _, _, err := execute(t, "show", "missing"); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing document error, got %v", err)
	}
}

func TestHistorySurvivesInvocations(t *testing.T) {
	useMemoryStore(t)
	mustExecute(t, "new", "sketch")
	first := draw(t, "sketch", "0,0;10,0")
	second := draw(t, "sketch", "0,20;10,20")

	show := mustExecute(t, "show", "sketch")
	if !strings.Contains(show, first+"\t2 points\t#ffffff") || !strings.Contains(show, second) {
		t.Fatalf("unexpected show output:\n%s", show)
	}

	if out := mustExecute(t, "undo", "sketch"); !strings.HasPrefix(out, "head 1: add stroke") {
		t.Fatalf("unexpected undo output %q", out)
	}
	third := draw(t, "sketch", "50,50;60,60")

	history := mustExecute(t, "history", "sketch")
	for _, want := range []string{"  0 root", "  * 1 add stroke", "      2 add stroke", "    @ 3 add stroke"} {
		if !strings.Contains(history, want) {
			t.Fatalf("history missing %q:\n%s", want, history)
		}
	}

	mustExecute(t, "undo", "sketch")
	mustExecute(t, "branch", "sketch", "0")
	if out := mustExecute(t, "redo", "sketch"); !strings.HasPrefix(out, "head 2:") {
		t.Fatalf("redo should follow branch 0, got %q", out)
	}
	show = mustExecute(t, "show", "sketch")
	if !strings.Contains(show, second) || strings.Contains(show, third) {
		t.Fatalf("expected the second stroke back:\n%s", show)
	}
	if _, _, err := execute(t, "redo", "sketch"); err == nil {
		t.Fatalf("redo at a leaf should fail")
	}
	if _, _, err := execute(t, "branch", "sketch", "3"); err == nil {
		t.Fatalf("expected an out of range branch error")
	}

	if out := mustExecute(t, "checkout", "sketch", "3"); !strings.HasPrefix(out, "head 3:") {
		t.Fatalf("unexpected checkout output %q", out)
	}
	if show := mustExecute(t, "show", "sketch"); !strings.Contains(show, third) {
		t.Fatalf("checkout did not restore the third stroke:\n%s", show)
	}
}

func TestEditingTools(t *testing.T) {
	useMemoryStore(t)
	mustExecute(t, "new", "sketch")
	line := draw(t, "sketch", "0,0;10,0")
	boxed := draw(t, "sketch", "50,50;60,60")

	if out := mustExecute(t, "erase", "sketch", "--at", "5,0", "--radius", "0.5"); strings.TrimSpace(out) != line {
		t.Fatalf("erase removed %q, want %s", out, line)
	}
	if out := mustExecute(t, "cut", "sketch", "--loop", "40,40;70,40;70,70;40,70"); strings.TrimSpace(out) != boxed {
		t.Fatalf("cut removed %q, want %s", out, boxed)
	}
	if show := mustExecute(t, "show", "sketch"); strings.Count(show, "\n") != 1 {
		t.Fatalf("expected no strokes left:\n%s", show)
	}
	mustExecute(t, "undo", "sketch")
	mustExecute(t, "undo", "sketch")

	mustExecute(t, "extend", "sketch", line, "--points", "10,5")
	mustExecute(t, "move", "sketch", line, "--dx", "5", "--dy", "0", "--rotate", "0", "--scale", "1")
	mustExecute(t, "restyle", "sketch", line, "--color", "#00ff00", "--width", "3")

	show := mustExecute(t, "show", "sketch")
	if !strings.Contains(show, line+"\t3 points\t#00ff00\twidth 3\t(5,0)-(15,5)") {
		t.Fatalf("unexpected edited stroke:\n%s", show)
	}
	if !strings.Contains(show, boxed+"\t2 points\t#ffffff") {
		t.Fatalf("untouched stroke changed:\n%s", show)
	}
	if _, _, err := execute(t, "move", "sketch", "--dx", "0", "--dy", "0", "--rotate", "0", "--scale", "1"); err == nil {
		t.Fatalf("an identity move should be rejected")
	}
	if _, _, err := execute(t, "draw", "sketch", "--points", "1,1;1.2,1.2", "--color", "#ffffff", "--width", "1"); err == nil {
		t.Fatalf("a sub-tolerance drag should be rejected")
	}
}

func TestExportImport(t *testing.T) {
	useMemoryStore(t)
	mustExecute(t, "new", "sketch")
	draw(t, "sketch", "0,0;10,0")
	draw(t, "sketch", "0,20;10,20")
	mustExecute(t, "undo", "sketch")

	if out := mustExecute(t, "export", "sketch", "backup"); !strings.HasPrefix(out, "backup.co\t") {
		t.Fatalf("unexpected export output %q", out)
	}
	if out := mustExecute(t, "files"); out != "backup\n" {
		t.Fatalf("unexpected files output %q", out)
	}
	if _, _, err := execute(t, "import", "backup", "sketch", "--force=false"); err == nil {
		t.Fatalf("import over an existing document needs --force")
	}
	mustExecute(t, "import", "backup", "copy", "--force=false")
	if a, b := mustExecute(t, "history", "sketch"), mustExecute(t, "history", "copy"); a != b {
		t.Fatalf("imported history differs:\n%s\n%s", a, b)
	}
	mustExecute(t, "redo", "copy")

	if out := mustExecute(t, "delete", "copy"); out != "deleted copy\n" {
		t.Fatalf("unexpected delete output %q", out)
	}
	if _, _, err := execute(t, "delete", "copy"); err == nil {
		t.Fatalf("deleting twice should fail")
	}
}

func TestMetricsFlag(t *testing.T) {
	useMemoryStore(t)
	mustExecute(t, "new", "sketch")
	draw(t, "sketch", "0,0;10,0")
	_, errOut, err := execute(t, "undo", "sketch", "--metrics")
	t.Cleanup(func() { showMetrics = false })
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	want := `carveout_content_manager_operations_total{operation="undo_cmd",status="success"} 1`
	if !strings.Contains(errOut, want) {
		t.Fatalf("metrics missing %q:\n%s", want, errOut)
	}
	if !strings.Contains(errOut, `carveout_content_manager_operation_duration_seconds_count{operation="undo_cmd"} 1`) {
		t.Fatalf("histogram count missing:\n%s", errOut)
	}
	if _, _, err := execute(t, "list", "--log-level", "loud"); err == nil {
		t.Fatalf("expected a bad log level error")
	}
	mustExecute(t, "list", "--log-level", "warn")
}
