package controller

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/objdb/cli/ucli"
)

func TestController_SubmitAndList(t *testing.T) {
	ctrl := makeController(t)

	out, err := runApp(ctrl, "queue", "submit", "--account", "1", "--amount", "10",
		"--time", "2020-01-01T00:00:02Z")
	require.NoError(t, err)
	require.Equal(t, "submitted 2.9.0 #0 1.2.1 10 cycles at 2020-01-01T00:00:02 "+
		"freq 100 sum 10 user_submit\n", out)

	out, err = runApp(ctrl, "queue", "submit", "--account", "2", "--amount", "20",
		"--origin", "charter_license", "--license", "3", "--comment", "hello",
		"--frequency", "50", "--time", "2020-01-01T00:00:01Z")
	require.NoError(t, err)
	require.Equal(t, "submitted 2.9.1 #1 1.2.2 20 cycles at 2020-01-01T00:00:01 "+
		"freq 50 sum 30 charter_license 1.13.3 \"hello\"\n", out)

	// The time of the submission defaults to the current time.
	out, err = runApp(ctrl, "queue", "submit", "--account", "1", "--amount", "5")
	require.NoError(t, err)
	require.Contains(t, out, "at 2020-01-01T00:00:03 ")

	out, err = runApp(ctrl, "queue", "list")
	require.NoError(t, err)
	require.Equal(t, []string{"2.9.1", "2.9.0", "2.9.2"}, firstColumn(out))
	require.Contains(t, out, "3 entries, next number 3, historic sum 35 cycles\n")

	out, err = runApp(ctrl, "queue", "list", "--account", "1")
	require.NoError(t, err)
	require.Equal(t, []string{"2.9.0", "2.9.2"}, firstColumn(out))

	out, err = runApp(ctrl, "queue", "list", "--from", "2020-01-01T00:00:02Z")
	require.NoError(t, err)
	require.Equal(t, []string{"2.9.0", "2.9.2"}, firstColumn(out))

	out, err = runApp(ctrl, "queue", "list", "--from", "2020-01-01T00:00:01Z",
		"--to", "2020-01-01T00:00:02Z")
	require.NoError(t, err)
	require.Equal(t, []string{"2.9.1", "2.9.0"}, firstColumn(out))
}

func TestController_RemoveAndDistribute(t *testing.T) {
	ctrl := makeController(t)

	submit(t, ctrl, "1", "10", "2020-01-01T00:00:00Z")
	submit(t, ctrl, "2", "20", "2020-01-01T00:00:01Z")
	submit(t, ctrl, "3", "5", "2020-01-01T00:00:02Z")
	submit(t, ctrl, "4", "1", "2020-01-01T00:00:03Z")

	out, err := runApp(ctrl, "queue", "remove", "--id", "2.9.3")
	require.NoError(t, err)
	require.Equal(t, "removed 2.9.3\n", out)

	out, err = runApp(ctrl, "queue", "distribute", "--budget", "15")
	require.NoError(t, err)
	require.Contains(t, out, "distributed 2.9.0 #0 1.2.1 10 cycles ")
	require.NotContains(t, out, "2.9.1")
	require.Contains(t, out, "1 entries, 10 cycles distributed, 2 left\n")

	out, err = runApp(ctrl, "queue", "list")
	require.NoError(t, err)
	require.Equal(t, []string{"2.9.1", "2.9.2"}, firstColumn(out))

	// The identity of a removed entry is never reassigned.
	out = submit(t, ctrl, "5", "1", "2020-01-01T00:00:04Z")
	require.Contains(t, out, "submitted 2.9.4 #4 ")

	_, err = runApp(ctrl, "queue", "remove", "--id", "2.9.0")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to remove: ")
}

func TestController_FailureLeavesDatabase(t *testing.T) {
	ctrl := makeController(t)

	submit(t, ctrl, "1", "10", "2020-01-01T00:00:00Z")

	_, err := runApp(ctrl, "queue", "submit", "--account", "1", "--amount", "-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to submit: ")

	_, err = runApp(ctrl, "queue", "distribute", "--budget", "-1")
	require.EqualError(t, err, "failed to distribute: negative budget: -1")

	out, err := runApp(ctrl, "queue", "list")
	require.NoError(t, err)
	require.Contains(t, out, "1 entries, next number 1, historic sum 10 cycles\n")
}

func TestController_LevelDB(t *testing.T) {
	ctrl := makeController(t)

	t.Setenv("OBJDB_BACKEND", "leveldb")
	t.Setenv("OBJDB_DB", filepath.Join(t.TempDir(), "level"))

	submit(t, ctrl, "1", "10", "2020-01-01T00:00:00Z")
	submit(t, ctrl, "2", "10", "2020-01-01T00:00:00Z")

	out, err := runApp(ctrl, "queue", "list")
	require.NoError(t, err)
	require.Equal(t, []string{"2.9.0", "2.9.1"}, firstColumn(out))
}

func TestController_ConfigFile(t *testing.T) {
	ctrl := makeController(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := "db: " + filepath.Join(dir, "file.db") + "\nbucket: other\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	os.Unsetenv("OBJDB_DB")

	out, err := runApp(ctrl, "--config", path, "queue", "submit", "--account", "1",
		"--amount", "1")
	require.NoError(t, err)
	require.Contains(t, out, "submitted 2.9.0 ")

	require.FileExists(t, filepath.Join(dir, "file.db"))
}

func TestController_Schema(t *testing.T) {
	ctrl := makeController(t)

	out, err := runApp(ctrl, "schema")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11)
	require.Equal(t, "reward_queue_object (2.9.0)", lines[0])
	require.Equal(t, []string{"number", "uint"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"license", "identity", "(optional)"}, strings.Fields(lines[3]))
	require.Equal(t, []string{"historic_sum", "int"}, strings.Fields(lines[10]))
}

func TestController_BadArguments(t *testing.T) {
	ctrl := makeController(t)

	_, err := runApp(ctrl, "queue", "submit", "--account", "1", "--amount", "1",
		"--origin", "gift")
	require.EqualError(t, err, "invalid origin: unknown origin 'gift'")

	_, err = runApp(ctrl, "queue", "submit", "--account", "1", "--amount", "1",
		"--frequency", "70000")
	require.EqualError(t, err, "invalid frequency: 70000")

	_, err = runApp(ctrl, "queue", "submit", "--account", "1", "--amount", "1",
		"--time", "yesterday")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid time: ")

	_, err = runApp(ctrl, "queue", "list", "--from", "yesterday")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid from: ")

	_, err = runApp(ctrl, "queue", "list", "--to", "tomorrow")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid to: ")

	_, err = runApp(ctrl, "queue", "remove", "--id", "abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid id: ")
}

func TestController_BadEnvironment(t *testing.T) {
	ctrl := makeController(t)

	t.Setenv("OBJDB_BACKEND", "mongo")

	_, err := runApp(ctrl, "queue", "list")
	require.EqualError(t, err, "failed to load config: invalid config: unknown backend 'mongo'")

	t.Setenv("OBJDB_BACKEND", "bolt")
	t.Setenv("OBJDB_DB", t.TempDir())

	_, err = runApp(ctrl, "queue", "distribute", "--budget", "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to open database: ")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeController(t *testing.T) Controller {
	color.NoColor = true

	t.Setenv("OBJDB_DB", filepath.Join(t.TempDir(), "objdb.db"))

	ctrl := NewController(new(bytes.Buffer))
	ctrl.now = func() time.Time {
		return time.Date(2020, 1, 1, 0, 0, 3, 0, time.UTC)
	}

	return ctrl
}

func runApp(ctrl Controller, args ...string) (string, error) {
	out := new(bytes.Buffer)
	ctrl.out = out

	builder := ucli.NewBuilder("objdb", nil, ctrl.Flags()...)
	ctrl.SetCommands(builder)

	err := builder.Build().Run(append([]string{"objdb"}, args...))

	return out.String(), err
}

func submit(t *testing.T, ctrl Controller, account, amount, ts string) string {
	out, err := runApp(ctrl, "queue", "submit", "--account", account, "--amount", amount,
		"--time", ts)
	require.NoError(t, err)

	return out
}

// firstColumn returns the first word of the lines that describe an entry.
func firstColumn(out string) []string {
	var words []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 1 && strings.HasPrefix(fields[1], "#") {
			words = append(words, fields[0])
		}
	}

	return words
}
