package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testList = `// ===BEGIN ICANN DOMAINS===
uk
co.uk
com
*.ck
!www.ck
// ===END ICANN DOMAINS===
// ===BEGIN PRIVATE DOMAINS===
github.io
// ===END PRIVATE DOMAINS===
`

// setupEnv writes a list file and a config pointing at it, then runs
// `update` so lookups have rules to work with.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	listPath := filepath.Join(dir, "list.dat")
	require.NoError(t, os.WriteFile(listPath, []byte(testList), 0644))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`app:
  log_level: error
  db_path: %s
lists:
  sources:
    - name: local
      url: %s
      format: dat
lookup:
  additional_parts: 2
`, filepath.Join(dir, "rules.db"), listPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, err := run(t, cfgPath, "update")
	require.NoError(t, err)
	require.Contains(t, out, "local\t6 rules")
	return cfgPath
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLookupCommands(t *testing.T) {
	cfg := setupEnv(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"suffix", "www.bbc.co.uk"}, "co.uk\n"},
		{[]string{"domain", "www.bbc.co.uk"}, "bbc.co.uk\n"},
		{[]string{"domain", "WWW.BBC.CO.UK."}, "bbc.co.uk\n"},
		{[]string{"domain", "https://news.bbc.co.uk/path"}, "bbc.co.uk\n"},
		{[]string{"suffix", "www.ck"}, "ck\n"},
		{[]string{"suffix", "example.org"}, "-\n"},
		{[]string{"domain", "co.uk"}, "co.uk\n"},
		{[]string{"suffix", ""}, "(empty)\n"},
		{[]string{"base", "a.b.c.bbc.co.uk"}, "c.bbc.co.uk\n"},
		{[]string{"base", "--parts", "0", "a.b.c.bbc.co.uk"}, "co.uk\n"},
		{[]string{"suffix", "foo.github.io"}, "github.io\n"},
		{[]string{"samesite", "mail.example.com", "www.example.com"}, "true\n"},
		{[]string{"samesite", "a.foo.ck", "a.bar.ck"}, "false\n"},
		{[]string{"suffix", "a.com", "b.org"}, "a.com\tcom\nb.org\t-\n"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := run(t, cfg, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestBase_NegativeParts(t *testing.T) {
	cfg := setupEnv(t)
	_, err := run(t, cfg, "base", "--parts", "-2", "a.co.uk")
	assert.Error(t, err)
}

func TestExplain(t *testing.T) {
	cfg := setupEnv(t)

	out, err := run(t, cfg, "explain", "www.ck")
	require.NoError(t, err)
	assert.Contains(t, out, "suffix:  ck\n")
	assert.Contains(t, out, "domain:  www.ck\n")
	assert.Contains(t, out, "rule:    !www.ck (exception)\n")
	assert.Contains(t, out, "source:  local [icann]\n")

	out, err = run(t, cfg, "explain", "example.org")
	require.NoError(t, err)
	assert.Contains(t, out, "rule:    -\n")
}

func TestCrossCheck(t *testing.T) {
	cfg := setupEnv(t)

	out, err := run(t, cfg, "crosscheck", "www.bbc.co.uk", "example.org")
	require.NoError(t, err)
	assert.Contains(t, out, "example.org\tours=-\treference=org\ticann=true\n")
	assert.Contains(t, out, "1 of 2 hosts differ\n")
}

func TestLookupWithoutRules(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("app:\n  db_path: %s\n", filepath.Join(dir, "empty.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	_, err := run(t, cfgPath, "domain", "www.bbc.co.uk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run `suffixguard update` first")
}

func TestUpdate_AllSourcesFail(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf(`app:
  db_path: %s
lists:
  sources:
    - name: missing
      url: %s
`, filepath.Join(dir, "rules.db"), filepath.Join(dir, "nope.dat"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	out, err := run(t, cfgPath, "update")
	assert.Error(t, err)
	assert.Contains(t, out, "missing\terror:")
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	out, err := run(t, path, "init")
	require.NoError(t, err)
	assert.Equal(t, "Created "+path+"\n", out)
	assert.FileExists(t, path)

	_, err = run(t, path, "init")
	assert.Error(t, err, "init must not overwrite")
}

func TestPcap_MissingFile(t *testing.T) {
	cfg := setupEnv(t)
	_, err := run(t, cfg, "pcap", filepath.Join(t.TempDir(), "none.pcap"))
	assert.Error(t, err)
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "-", formatResult("", false))
	assert.Equal(t, "(empty)", formatResult("", true))
	assert.Equal(t, "co.uk", formatResult("co.uk", true))
}
