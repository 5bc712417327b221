package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain_Happy(t *testing.T) {
	dir := makeDir(t)
	buf := setOutput(t)

	oldArgs := os.Args
	defer func() {
		os.Args = oldArgs
	}()

	os.Args = []string{"datastore", "--path", dir, "get"}

	main()

	require.Equal(t, "{}\n", buf.String())
}

func TestMain_Error(t *testing.T) {
	setOutput(t)

	oldArgs, oldPrinter, oldExit := os.Args, printer, exit
	defer func() {
		os.Args, printer, exit = oldArgs, oldPrinter, oldExit
	}()

	errBuf := new(bytes.Buffer)
	printer = errBuf

	code := 0
	exit = func(c int) { code = c }

	os.Args = []string{"datastore", "--backend", "etcd", "get"}

	main()

	require.Equal(t, 1, code)
	require.Contains(t, errBuf.String(), "unknown backend 'etcd'")
}

func TestRun_SetCommitGet(t *testing.T) {
	dir := makeDir(t)
	buf := setOutput(t)

	err := runWith(dir, "set", `{"settings":{"motd":"hello","network":{"mtu":1500}}}`)
	require.NoError(t, err)
	require.Empty(t, buf.String())

	err = runWith(dir, "get", "--pending")
	require.NoError(t, err)
	require.JSONEq(t, `{"settings":{"motd":"hello","network":{"mtu":1500}}}`, buf.String())

	buf.Reset()

	err = runWith(dir, "get")
	require.NoError(t, err)
	require.Equal(t, "{}\n", buf.String())

	buf.Reset()

	err = runWith(dir, "commit")
	require.NoError(t, err)
	require.JSONEq(t, `["settings.motd","settings.network.mtu"]`, buf.String())

	buf.Reset()

	err = runWith(dir, "get", "settings.network")
	require.NoError(t, err)
	require.JSONEq(t, `{"settings":{"network":{"mtu":1500}}}`, buf.String())
}

func TestRun_SetDefaults(t *testing.T) {
	dir := makeDir(t)
	buf := setOutput(t)

	err := runWith(dir, "set", "--live", "--defaults", `{"motd":"hi"}`)
	require.NoError(t, err)

	err = runWith(dir, "metadata", "get", "motd", "from-defaults")
	require.NoError(t, err)
	require.Equal(t, "true\n", buf.String())

	buf.Reset()

	err = runWith(dir, "metadata", "set", "motd", "generator", `["a", 2]`)
	require.NoError(t, err)

	err = runWith(dir, "metadata", "get", "motd", "generator")
	require.NoError(t, err)
	require.JSONEq(t, `["a", 2]`, buf.String())

	buf.Reset()

	err = runWith(dir, "metadata", "list")
	require.NoError(t, err)
	require.JSONEq(t, `{"motd":["from-defaults","generator"]}`, buf.String())
}

func TestRun_SetUserProvenance(t *testing.T) {
	dir := makeDir(t)
	buf := setOutput(t)

	err := runWith(dir, "set", "--live", `{"motd":"hi"}`)
	require.NoError(t, err)

	err = runWith(dir, "metadata", "get", "motd", "from-defaults")
	require.NoError(t, err)
	require.Equal(t, "false\n", buf.String())

	// A rejected batch leaves neither values nor provenance behind.
	err = runWith(dir, "set", "--live", "--defaults", `{"motd":{"title":"x"},"other":1}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to write settings: ")

	buf.Reset()

	err = runWith(dir, "metadata", "list")
	require.NoError(t, err)
	require.JSONEq(t, `{"motd":["from-defaults"]}`, buf.String())

	buf.Reset()

	err = runWith(dir, "metadata", "get", "motd", "from-defaults")
	require.NoError(t, err)
	require.Equal(t, "false\n", buf.String())
}

func TestRun_DeletePending(t *testing.T) {
	dir := makeDir(t)
	buf := setOutput(t)

	err := runWith(dir, "set", `{"a":1,"b":true}`)
	require.NoError(t, err)

	err = runWith(dir, "delete-pending")
	require.NoError(t, err)
	require.JSONEq(t, `["a","b"]`, buf.String())

	buf.Reset()

	err = runWith(dir, "commit")
	require.NoError(t, err)
	require.JSONEq(t, `[]`, buf.String())
}

func TestRun_Bolt(t *testing.T) {
	path := filepath.Join(makeDir(t), "datastore.db")
	buf := setOutput(t)

	err := run([]string{"datastore", "--backend", "bolt", "--path", path,
		"set", `{"a":{"b":"c"}}`})
	require.NoError(t, err)

	err = run([]string{"datastore", "--backend", "bolt", "--path", path, "commit"})
	require.NoError(t, err)
	require.JSONEq(t, `["a.b"]`, buf.String())
}

func TestRun_ConfigFile(t *testing.T) {
	dir := makeDir(t)
	buf := setOutput(t)

	config := filepath.Join(dir, "config.yml")
	err := os.WriteFile(config, []byte("backend: filesystem\npath: "+dir+"\n"), 0o644)
	require.NoError(t, err)

	err = run([]string{"datastore", "--config", config, "set", "--live", `{"a":"b"}`})
	require.NoError(t, err)

	t.Setenv("DATASTORE_PATH", dir)

	err = run([]string{"datastore", "get"})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":"b"}`, buf.String())

	err = run([]string{"datastore", "--config", filepath.Join(dir, "missing.yml"), "get"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read config file")
}

func TestRun_Metrics(t *testing.T) {
	dir := makeDir(t)
	setOutput(t)

	oldPrinter := printer
	defer func() {
		printer = oldPrinter
	}()

	errBuf := new(bytes.Buffer)
	printer = errBuf

	err := run([]string{"datastore", "--path", dir, "--metrics", "commit"})
	require.NoError(t, err)
	require.Contains(t, errBuf.String(), "bottlerocket_datastore_operations_total")
	require.Contains(t, errBuf.String(), `op="commit"`)
}

func TestRun_Failures(t *testing.T) {
	dir := makeDir(t)
	setOutput(t)

	err := runWith(dir, "set")
	require.EqualError(t, err, "expected a single JSON tree")

	err = runWith(dir, "set", `{"a":`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode JSON: ")

	err = runWith(dir, "set", `{"a":[{"b":1}]}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid tree: ")

	err = runWith(dir, "set", `{"bad key":1}`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid key 'bad key'")

	err = runWith(dir, "metadata", "get", "a")
	require.EqualError(t, err, "expected 2 arguments, got 1")

	err = runWith(dir, "metadata", "get", "a", "from-defaults")
	require.EqualError(t, err, "failed to read metadata: key 'a/from-defaults' not found")

	err = runWith(dir, "metadata", "set", "a", "b.c", "1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid key 'b.c'")
}

// -----------------------------------------------------------------------------
// Utility functions

func runWith(dir string, args ...string) error {
	return run(append([]string{"datastore", "--path", dir}, args...))
}

func setOutput(t *testing.T) *bytes.Buffer {
	oldOut := out
	t.Cleanup(func() { out = oldOut })

	buf := new(bytes.Buffer)
	out = buf

	return buf
}

func makeDir(t *testing.T) string {
	dir, err := os.MkdirTemp(os.TempDir(), "bottlerocket-cli")
	require.NoError(t, err)

	t.Cleanup(func() { os.RemoveAll(dir) })

	return dir
}
