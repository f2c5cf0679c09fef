package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const boundaryYAML = `name: boundary
sections:
  - name: header
    trap: {prefix: HEAD}
    columns:
      - {name: type, width: 4}
      - {name: file_id, width: 10, type: integer}
  - name: body
    trap: {not_prefix: [HEAD, FOOT]}
    columns:
      - {name: first, width: 10}
      - {name: last, width: 10}
  - name: footer
    trap: {prefix: FOOT}
    columns:
      - {name: type, width: 4}
      - {name: file_id, width: 10, type: integer}
`

const boundaryText = "HEAD         1\n      Paul    Hewson\n      Dave     Evans\nFOOT         1"

const boundaryJSON = `{
  "header": [{"type": "HEAD", "file_id": 1}],
  "body": [
    {"first": "Paul", "last": "Hewson"},
    {"first": "Dave", "last": "Evans"}
  ],
  "footer": [{"type": "FOOT", "file_id": 1}]
}`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// run executes the flatfile command with args and returns its stdout and
// stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(configEnv, "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func compress(t *testing.T, ext string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	switch ext {
	case ".gz":
		w = gzip.NewWriter(&buf)
	case ".zst":
		zw, err := zstd.NewWriter(&buf)
		require.NoError(t, err)
		w = zw
	case ".lz4":
		w = lz4.NewWriter(&buf)
	default:
		t.Fatalf("unknown extension %s", ext)
	}
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "boundary.yaml", []byte(boundaryYAML))
	input := writeFile(t, dir, "in.txt", []byte(boundaryText))

	t.Run("json", func(t *testing.T) {
		stdout, stderr, err := run(t, "", "parse", "--schema", schema, input)
		require.NoError(t, err)
		assert.JSONEq(t, boundaryJSON, stdout)
		assert.Contains(t, stderr, "msg=parsed")
	})

	t.Run("stdin", func(t *testing.T) {
		stdout, _, err := run(t, boundaryText, "parse", "-s", schema, "-")
		require.NoError(t, err)
		assert.JSONEq(t, boundaryJSON, stdout)
	})

	t.Run("yaml", func(t *testing.T) {
		stdout, _, err := run(t, "", "parse", "-s", schema, "-o", "yaml", input)
		require.NoError(t, err)

		var got map[string][]map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, map[string]any{"type": "HEAD", "file_id": 1}, got["header"][0])
		assert.Len(t, got["body"], 2)
	})

	t.Run("cbor", func(t *testing.T) {
		stdout, _, err := run(t, "", "parse", "-s", schema, "-o", "cbor", input)
		require.NoError(t, err)

		var got map[string][]map[string]any
		require.NoError(t, cbor.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, "Hewson", got["body"][0]["last"])
		assert.EqualValues(t, 1, got["footer"][0]["file_id"])
	})

	for _, ext := range []string{".gz", ".zst", ".lz4"} {
		t.Run("compressed "+ext, func(t *testing.T) {
			path := writeFile(t, dir, "in.txt"+ext, compress(t, ext, []byte(boundaryText)))
			stdout, _, err := run(t, "", "parse", "-s", schema, path)
			require.NoError(t, err)
			assert.JSONEq(t, boundaryJSON, stdout)
		})
	}

	trapped := writeFile(t, dir, "trapped.yaml", []byte(`sections:
  - name: head
    trap: {prefix: H}
    columns: [{name: v, width: 2}]
  - name: row
    trap: {prefix: R}
    columns: [{name: v, width: 2}]
`))

	t.Run("skips unmatched records", func(t *testing.T) {
		stdout, stderr, err := run(t, "H1\nZ9\nR2", "parse", "-s", trapped, "--log-level", "debug")
		require.NoError(t, err)
		assert.JSONEq(t, `{"head": [{"v": "H1"}], "row": [{"v": "R2"}]}`, stdout)
		assert.Contains(t, stderr, "matched no section")
	})

	t.Run("strict", func(t *testing.T) {
		_, _, err := run(t, "H1\nZ9\nR2", "parse", "-s", trapped, "--strict")
		assert.ErrorContains(t, err, "line 2 matched no section")
	})

	t.Run("encoding", func(t *testing.T) {
		latin := writeFile(t, dir, "latin.yaml", []byte("sections:\n  - name: row\n    align: left\n    columns: [{name: name, width: 5}]\n"))
		stdout, _, err := run(t, "caf\xe9 ", "parse", "-s", latin, "--encoding", "ISO-8859-1", "--codepoints")
		require.NoError(t, err)
		assert.JSONEq(t, `{"row": [{"name": "café"}]}`, stdout)
	})
}

func TestParse_errors(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "boundary.yaml", []byte(boundaryYAML))
	other := writeFile(t, dir, "other.yaml", []byte("sections:\n  - name: row\n    columns: [{name: x, width: 3}]\n"))

	for _, tt := range []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"no schema", boundaryText, []string{"parse"}, "no schema given"},
		{"missing input", "", []string{"parse", "-s", schema, filepath.Join(dir, "missing.txt")}, "opening input"},
		{"unknown output", boundaryText, []string{"parse", "-s", schema, "-o", "xml"}, "unknown output format"},
		{"unknown encoding", boundaryText, []string{"parse", "-s", schema, "--encoding", "no-such-charset"}, "no-such-charset"},
		{"unknown name", boundaryText, []string{"parse", "-s", schema, "-n", "payroll"}, "payroll"},
		{"bad log level", boundaryText, []string{"parse", "-s", schema, "--log-level", "loud"}, "invalid log level"},
		{"missing required section", "      Paul    Hewson", []string{"parse", "-s", schema}, "header"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("picks a schema by name", func(t *testing.T) {
		stdout, _, err := run(t, boundaryText, "parse", "-s", schema, "-s", other, "-n", "boundary")
		require.NoError(t, err)
		assert.JSONEq(t, boundaryJSON, stdout)
	})
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "boundary.yaml", []byte(boundaryYAML))

	t.Run("json stdin", func(t *testing.T) {
		stdout, _, err := run(t, boundaryJSON, "generate", "-s", schema)
		require.NoError(t, err)
		assert.Equal(t, boundaryText, stdout)
	})

	t.Run("yaml file", func(t *testing.T) {
		input := writeFile(t, dir, "records.yaml", []byte(`
header: {type: HEAD, file_id: 1}
body:
  - {first: Paul, last: Hewson}
  - {first: Dave, last: Evans}
footer: {type: FOOT, file_id: 1}
`))
		stdout, _, err := run(t, "", "generate", "-s", schema, input)
		require.NoError(t, err)
		assert.Equal(t, boundaryText, stdout)
	})

	t.Run("explicit input format", func(t *testing.T) {
		stdout, _, err := run(t, "header: {type: HEAD, file_id: 1}\nbody: [{first: Paul, last: Hewson}]\nfooter: {type: FOOT, file_id: 1}\n",
			"generate", "-s", schema, "--input-format", "yaml")
		require.NoError(t, err)
		assert.Equal(t, "HEAD         1\n      Paul    Hewson\nFOOT         1", stdout)
	})

	t.Run("missing required section", func(t *testing.T) {
		stdout, _, err := run(t, `{"header": {"type": "HEAD", "file_id": 1}}`, "generate", "-s", schema)
		assert.ErrorContains(t, err, `required section "body" was empty`)
		assert.Empty(t, stdout)
	})

	t.Run("out file", func(t *testing.T) {
		out := filepath.Join(dir, "out.txt")
		stdout, _, err := run(t, boundaryJSON, "generate", "-s", schema, "--out", out)
		require.NoError(t, err)
		assert.Empty(t, stdout)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, boundaryText, string(data))
	})

	t.Run("round trip", func(t *testing.T) {
		parsed, _, err := run(t, boundaryText, "parse", "-s", schema)
		require.NoError(t, err)
		generated, _, err := run(t, parsed, "generate", "-s", schema)
		require.NoError(t, err)
		assert.Equal(t, boundaryText, generated)
	})

	t.Run("date round trip", func(t *testing.T) {
		dated := writeFile(t, dir, "dated.yaml", []byte(`sections:
  - name: row
    columns:
      - {name: name, width: 5}
      - {name: born, width: 8, type: date, format: "%Y%m%d"}
`))
		const text = "  Ian20090822\nGrace19061209"

		parsed, _, err := run(t, text, "parse", "-s", dated)
		require.NoError(t, err)
		assert.Contains(t, parsed, `"2009-08-22T00:00:00Z"`)

		generated, _, err := run(t, parsed, "generate", "-s", dated)
		require.NoError(t, err)
		assert.Equal(t, text, generated)
	})

	t.Run("bad input", func(t *testing.T) {
		_, _, err := run(t, "[1, 2]", "generate", "-s", schema)
		assert.ErrorContains(t, err, "decoding json input")
	})
}

func TestConfig(t *testing.T) {
	dir := t.TempDir()
	schemas := filepath.Join(dir, "schemas")
	require.NoError(t, os.Mkdir(schemas, 0o700))
	writeFile(t, schemas, "boundary.yaml", []byte(boundaryYAML))

	config := writeFile(t, dir, "config.yaml", []byte("output: yaml\nschema_dirs: ["+schemas+"]\nlogging:\n  level: warn\n"))

	t.Run("flag", func(t *testing.T) {
		stdout, stderr, err := run(t, boundaryText, "--config", config, "parse")
		require.NoError(t, err)
		assert.Contains(t, stdout, "header:")
		assert.Empty(t, stderr)
	})

	t.Run("flags win", func(t *testing.T) {
		stdout, _, err := run(t, boundaryText, "--config", config, "parse", "-o", "json")
		require.NoError(t, err)
		assert.JSONEq(t, boundaryJSON, stdout)
	})

	t.Run("environment", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		t.Setenv(configEnv, config)
		cmd := newRootCmd(strings.NewReader(boundaryText), &stdout, &stderr)
		cmd.SetArgs([]string{"parse"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, stdout.String(), "header:")
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := run(t, boundaryText, "--config", filepath.Join(dir, "missing.yaml"), "parse")
		assert.ErrorContains(t, err, "failed to read config file")
	})
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", []byte("encoding: ISO-8859-1\ncodepoints: true\n"))
	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ISO-8859-1", config.Encoding)
	assert.True(t, config.Codepoints)
	assert.Equal(t, "json", config.Output)
	assert.Equal(t, "info", config.Logging.Level)
}
