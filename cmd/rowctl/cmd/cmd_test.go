package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ssargent/rowcodec/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	configPath string
	dataDir    string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	tmpDir := t.TempDir()
	c := &cli{
		configPath: filepath.Join(tmpDir, "config.yaml"),
		dataDir:    filepath.Join(tmpDir, "data"),
	}
	out, err := c.run(t, "init", "--data-dir", c.dataDir)
	require.NoError(t, err)
	require.Contains(t, out, "API key: ")
	return c
}

func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append(args, "--config", c.configPath))
	err := root.Execute()
	return buf.String(), err
}

func (c *cli) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, args...)
	require.NoError(t, err, out)
	return strings.TrimSpace(out)
}

func TestInitCommand(t *testing.T) {
	c := newCLI(t)

	cfg, err := config.LoadConfig(c.configPath)
	require.NoError(t, err)
	assert.Equal(t, c.dataDir, cfg.DataDir)
	assert.Len(t, cfg.Security.APIKey, 64)
	assert.DirExists(t, c.dataDir)

	out := c.mustRun(t, "init", "--data-dir", c.dataDir)
	assert.Contains(t, out, "already exists")

	again, err := config.LoadConfig(c.configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Security.APIKey, again.Security.APIKey)

	c.mustRun(t, "init", "--data-dir", c.dataDir, "--force")
	forced, err := config.LoadConfig(c.configPath)
	require.NoError(t, err)
	assert.NotEqual(t, cfg.Security.APIKey, forced.Security.APIKey)
}

func TestCommandsRequireConfig(t *testing.T) {
	c := &cli{configPath: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := c.run(t, "get", "0ujsswThIGTUYm2K8FjOOfXtY1K")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rowctl init")
}

func TestEncodeDecodeCommands(t *testing.T) {
	c := &cli{configPath: filepath.Join(t.TempDir(), "unused.yaml")}

	assert.Equal(t, "01ab", c.mustRun(t, "encode", "ab"))
	assert.Equal(t, "00", c.mustRun(t, "encode", ""))
	assert.Equal(t, "026869", c.mustRun(t, "encode", "--string", "hi"))

	assert.Equal(t, "ab", c.mustRun(t, "decode", "01ab"))
	assert.Equal(t, "ab\n\ncdef", c.mustRun(t, "decode", "--stream", "01ab0002cdef"))

	testCases := []struct {
		name string
		args []string
	}{
		{"not hex", []string{"encode", "zz"}},
		{"negative length", []string{"decode", "ffffffff0f"}},
		{"truncated", []string{"decode", "03ab"}},
		{"trailing bytes", []string{"decode", "01abcd"}},
		{"truncated stream", []string{"decode", "--stream", "01ab02cd"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.run(t, tc.args...)
			assert.Error(t, err)
		})
	}
}

func TestRowCommands(t *testing.T) {
	c := newCLI(t)

	id := c.mustRun(t, "put", `{"f0": 1, "f1": 2.5, "f2": "qw=="}`)
	require.Len(t, id, 27)

	assert.JSONEq(t, `{"f0":1,"f1":2.5,"f2":"qw=="}`, c.mustRun(t, "get", id))
	assert.JSONEq(t, `{"f0":1,"f1":2.5,"f2":"qw=="}`, c.mustRun(t, "get", "--pretty", id))

	assert.Equal(t, "equal", c.mustRun(t, "compare", id, `{"f2": "qw==", "f1": 2.5, "f0": 1}`))
	assert.Equal(t, "unequal", c.mustRun(t, "compare", id, `{"f0": 1, "f1": 2.5, "f2": "qg=="}`))
	assert.Equal(t, "equal", c.mustRun(t, "compare", "--strategy", "storage", id, id))

	_, err := c.run(t, "compare", "--strategy", "fuzzy", id, id)
	assert.Error(t, err)
	_, err = c.run(t, "compare", id, "not-a-row")
	assert.Error(t, err)

	assert.Equal(t, id, c.mustRun(t, "put", "--id", id, `{"f0": 2}`))
	assert.JSONEq(t, `{"f0":2,"f1":null,"f2":null}`, c.mustRun(t, "get", id))

	_, err = c.run(t, "put", `{"f9": 1}`)
	assert.Error(t, err)

	assert.Contains(t, c.mustRun(t, "delete", id), "Deleted")
	_, err = c.run(t, "get", id)
	assert.Error(t, err)
	_, err = c.run(t, "delete", id)
	assert.Error(t, err)
}

func TestExportImport(t *testing.T) {
	src := newCLI(t)
	src.mustRun(t, "put", `{"f0": 1, "f1": 1.5, "f2": "AQ=="}`)
	src.mustRun(t, "put", `{"f0": 2, "f1": null, "f2": ""}`)

	logPath := filepath.Join(t.TempDir(), "rows.log")
	jsonPath := filepath.Join(t.TempDir(), "rows.jsonl")

	assert.Contains(t, src.mustRun(t, "export", logPath), "Exported 2 rows")
	assert.Contains(t, src.mustRun(t, "export", "--json", jsonPath), "Exported 2 rows")

	lines := src.mustRun(t, "export", "-")
	assert.Equal(t, 2, len(strings.Split(lines, "\n")))

	dst := newCLI(t)
	assert.Contains(t, dst.mustRun(t, "import", logPath), "Imported 2 rows")
	assert.Contains(t, dst.mustRun(t, "import", "--json", jsonPath), "Imported 2 rows")

	exported := dst.mustRun(t, "export", "-")
	got := strings.Split(exported, "\n")
	require.Len(t, got, 4)
	for _, line := range got {
		assert.Contains(t, strings.Split(lines, "\n"), line)
	}
}

func TestImportTornLog(t *testing.T) {
	src := newCLI(t)
	src.mustRun(t, "put", `{"f0": 1}`)
	src.mustRun(t, "put", `{"f0": 2}`)

	logPath := filepath.Join(t.TempDir(), "rows.log")
	src.mustRun(t, "export", logPath)

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(logPath, info.Size()-1))

	dst := newCLI(t)
	_, err = dst.run(t, "import", logPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imported 1 rows")
}
