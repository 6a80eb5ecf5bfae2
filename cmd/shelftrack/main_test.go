package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/shelftrack/internal/config"
	"github.com/nainya/shelftrack/internal/inventory"
	"github.com/nainya/shelftrack/pkg/assign"
	"github.com/nainya/shelftrack/pkg/location"
	"github.com/nainya/shelftrack/pkg/persist"
	"github.com/nainya/shelftrack/pkg/scan"
)

// resetFlags clears global flag state between command runs
func resetFlags(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SHELFTRACK_STORE_BACKEND",
		"SHELFTRACK_STORE_PATH",
		"SHELFTRACK_CATALOG",
		"SHELFTRACK_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}
}

// execute runs the root command against a file store in dir
func execute(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "missing.yaml"),
		"--store", filepath.Join(dir, "shelftrack.json"),
		"--log-level", "error",
	}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func newTestSession(t *testing.T) *scan.Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Backend = config.BackendMemory
	svc, err := inventory.New(context.Background(), persist.NewMemoryStore(nil), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc.NewSession()
}

func TestCommandsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "", "assign", "123456789012", "Warehouse/ShelfB")
	require.NoError(t, err)
	assert.Contains(t, out, "Barcode 123456789012 added to Warehouse/ShelfB.")

	out, err = execute(t, dir, "", "assign", "123456789012", "Warehouse/ShelfB")
	require.NoError(t, err)
	assert.Contains(t, out, "already at Warehouse/ShelfB")

	out, err = execute(t, dir, "", "assign", "123456789012", "Warehouse", "ShelfC")
	require.NoError(t, err)
	assert.Contains(t, out, "is at Warehouse/ShelfB, not Warehouse/ShelfC")

	out, err = execute(t, dir, "", "find", "123456789012")
	require.NoError(t, err)
	assert.Equal(t, "Warehouse/ShelfB\n", out)

	out, err = execute(t, dir, "", "move", "123456789012", "Warehouse/ShelfC")
	require.NoError(t, err)
	assert.Contains(t, out, "moved to Warehouse/ShelfC")

	out, err = execute(t, dir, "", "ls", "Warehouse")
	require.NoError(t, err)
	assert.Contains(t, out, "ShelfC/")

	out, err = execute(t, dir, "", "ls", "Warehouse/ShelfC")
	require.NoError(t, err)
	assert.Contains(t, out, "  123456789012\n")

	out, err = execute(t, dir, "", "rm", "123456789012")
	require.NoError(t, err)
	assert.Contains(t, out, "removed from Warehouse/ShelfC")

	_, err = execute(t, dir, "", "find", "123456789012")
	require.Error(t, err)
	assert.Equal(t, "Barcode 123456789012 is not assigned.", err.Error())
}

func TestMkdirAndLsMissing(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "", "mkdir", "Backroom/Bin1")
	require.NoError(t, err)
	assert.Contains(t, out, "Location Backroom/Bin1 created.")

	out, err = execute(t, dir, "", "ls", "Backroom/Bin1")
	require.NoError(t, err)
	assert.Contains(t, out, "(empty)")

	_, err = execute(t, dir, "", "ls", "Nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no location Nowhere")
}

func TestClearAsksForConfirmation(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "", "assign", "A1", "Shelf")
	require.NoError(t, err)

	out, err := execute(t, dir, "n\n", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing cleared.")

	out, err = execute(t, dir, "", "find", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Shelf\n", out)

	out, err = execute(t, dir, "", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "All locations and barcodes cleared.")

	_, err = execute(t, dir, "", "find", "A1")
	require.Error(t, err)
}

func TestInvalidBackendRejected(t *testing.T) {
	_, err := execute(t, t.TempDir(), "", "--backend", "tape", "find", "A1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestScanLoopConflictFlow(t *testing.T) {
	sess := newTestSession(t)
	input := strings.Join([]string{
		"A1",
		"@Warehouse/ShelfB",
		"A1",
		"A1",
		"@Warehouse/ShelfC",
		"A1",
		"?",
		"y",
		"q",
		"ignored",
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, runScanLoop(context.Background(), strings.NewReader(input), &out, sess))

	text := out.String()
	assert.Contains(t, text, "Select a location first with @path.")
	assert.Contains(t, text, "Scanning into Warehouse/ShelfB.")
	assert.Contains(t, text, "Barcode A1 added to Warehouse/ShelfB.")
	assert.Contains(t, text, "Barcode A1 already at Warehouse/ShelfB.")
	assert.Contains(t, text, "Barcode A1 is at Warehouse/ShelfB, not Warehouse/ShelfC.")
	assert.Contains(t, text, "Move it to Warehouse/ShelfC? (y/n)")
	assert.Contains(t, text, "Pending: move A1 from Warehouse/ShelfB to Warehouse/ShelfC")
	assert.Contains(t, text, "Barcode A1 moved to Warehouse/ShelfC.")
	assert.NotContains(t, text, "ignored")

	_, pending := sess.Pending()
	assert.False(t, pending)
}

func TestScanLoopCancelMove(t *testing.T) {
	sess := newTestSession(t)
	input := "@Shelf1\nA1\n@Shelf2\nA1\nn\ny\n"

	var out bytes.Buffer
	require.NoError(t, runScanLoop(context.Background(), strings.NewReader(input), &out, sess))

	text := out.String()
	assert.Contains(t, text, "Move cancelled.")
	// y with nothing pending is treated as a barcode scan
	assert.Contains(t, text, "Barcode y added to Shelf2.")
}

func TestScanLoopLongSegmentNeedsConfirmation(t *testing.T) {
	sess := newTestSession(t)
	long := strings.Repeat("X", longNameLimit+1)
	input := "@" + long + "\nn\n@" + long + "\ny\n"

	var out bytes.Buffer
	require.NoError(t, runScanLoop(context.Background(), strings.NewReader(input), &out, sess))

	text := out.String()
	assert.Contains(t, text, "is unusually long")
	assert.Contains(t, text, "Selection unchanged.")
	assert.Contains(t, text, "Scanning into "+long+".")
	assert.Equal(t, location.Path{long}, sess.Selection())
}

func TestScanLoopInvalidSelection(t *testing.T) {
	sess := newTestSession(t)
	var out bytes.Buffer
	require.NoError(t, runScanLoop(context.Background(), strings.NewReader("@A//B\n"), &out, sess))
	assert.Contains(t, out.String(), "Location must name at least one segment, each non-empty UTF-8 text.")
	assert.Empty(t, sess.Selection())
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		res  assign.Result
		want string
	}{
		{"created", assign.Result{Outcome: assign.Created, Path: location.Path{"A"}}, "Location A created."},
		{"location exists", assign.Result{Outcome: assign.AlreadyPresent, Path: location.Path{"A"}}, "Location A already exists."},
		{"unrecognized", assign.Result{Outcome: assign.Unrecognized, Barcode: "Z"}, "Barcode Z is not in the catalog."},
		{"rolled back", assign.Result{Outcome: assign.PersistFailed, Applied: assign.Added, RolledBack: true}, "Could not save; added was undone."},
		{"kept in memory", assign.Result{Outcome: assign.PersistFailed, Applied: assign.Moved}, "Could not save; moved is kept in memory only."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describe(tt.res))
		})
	}
}

func TestDescribeError(t *testing.T) {
	res := assign.Result{Barcode: "A1", Conflict: location.Path{"Shelf2"}}
	assert.Equal(t, "Barcode A1 is no longer there; it is now at Shelf2.",
		describeError(res, assign.ErrNotFoundAtSource))
	assert.Equal(t, "There is no move waiting for confirmation.",
		describeError(assign.Result{}, scan.ErrNoPendingMove))
	assert.Equal(t, "Select a location first with @path.",
		describeError(assign.Result{}, scan.ErrNoSelection))
}
