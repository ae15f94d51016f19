package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/lumsvm/vorax/internal/vm"
)

// execute runs the root command with args and returns stdout, stderr
// and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// runWithID executes a program with a fixed run id, persisting to db.
func runWithID(t *testing.T, db, runID, program string, root *RootOptions) (string, error) {
	t.Helper()
	if root == nil {
		root = &RootOptions{Format: "text"}
	}
	opts := &RunOptions{
		RootOptions: root,
		Database:    db,
		RunIDs:      vm.NewFixedGenerator(runID),
	}
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	err := runProgram(opts, program, cmd)
	return out.String(), err
}

func testProgram(name string) string {
	return filepath.Join("testdata", name)
}

func decodeData(t *testing.T, out string, dst any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, dst))
}
