package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCmd(t *testing.T) {
	t.Run("valid template", func(t *testing.T) {
		path := writeFile(t, "menu.hbs", "<h1>{{title}}</h1>")

		out, err := execute(t, "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "menu.hbs: valid")
	})

	t.Run("invalid template exits with an error", func(t *testing.T) {
		path := writeFile(t, "bad.hbs", `<div onclick="go()">x</div><script>alert(1)</script>`)

		out, err := execute(t, "validate", path)
		assert.ErrorIs(t, err, errInvalidTemplate)
		assert.Contains(t, out, "bad.hbs: invalid")
		assert.Contains(t, out, "  - ")
	})

	t.Run("json format", func(t *testing.T) {
		path := writeFile(t, "bad.hbs", "<iframe src=\"https://x.example.com\"></iframe>")

		out, err := execute(t, "validate", "--format", "json", path)
		assert.Error(t, err)

		var result struct {
			Valid  bool     `json:"valid"`
			Errors []string `json:"errors"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &result))
		assert.False(t, result.Valid)
		assert.NotEmpty(t, result.Errors)
	})

	t.Run("unknown format", func(t *testing.T) {
		path := writeFile(t, "menu.hbs", "<p>ok</p>")

		_, err := execute(t, "validate", "-f", "yaml", path)
		assert.EqualError(t, err, `unknown format "yaml", expected text or json`)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.hbs"))
		assert.ErrorContains(t, err, "failed to read template")
	})

	t.Run("requires one argument", func(t *testing.T) {
		_, err := execute(t, "validate")
		assert.Error(t, err)
	})
}

func TestPreviewCmd(t *testing.T) {
	tpl := writeFile(t, "menu.hbs", "<h1>{{title}}</h1>{{#each items}}<li>{{this}}</li>{{/each}}")

	t.Run("renders sample data", func(t *testing.T) {
		data := writeFile(t, "data.json", `{"title":"Lunch","items":["Soup","Salad"]}`)

		out, err := execute(t, "preview", tpl, "--data", data)
		require.NoError(t, err)
		assert.Contains(t, out, "<h1>Lunch</h1>")
		assert.Contains(t, out, "<li>Salad</li>")
	})

	t.Run("manual source wins over sample data", func(t *testing.T) {
		data := writeFile(t, "data.json", `{"title":"Sample"}`)
		source := writeFile(t, "source.json", `{"type":"manual","manualData":{"title":"Live"}}`)

		out, err := execute(t, "preview", tpl, "-d", data, "-s", source)
		require.NoError(t, err)
		assert.Contains(t, out, "<h1>Live</h1>")
	})

	t.Run("renders without data", func(t *testing.T) {
		out, err := execute(t, "preview", tpl)
		require.NoError(t, err)
		assert.Contains(t, out, "<h1></h1>")
	})

	t.Run("rejects forbidden markup", func(t *testing.T) {
		bad := writeFile(t, "bad.hbs", "<script>alert(1)</script>")

		_, err := execute(t, "preview", bad)
		assert.ErrorContains(t, err, "invalid template")
	})

	t.Run("rejects an invalid source", func(t *testing.T) {
		source := writeFile(t, "source.json", `{"type":"rest_api"}`)

		_, err := execute(t, "preview", tpl, "--source", source)
		assert.ErrorContains(t, err, "dataSource.url is required")
	})

	t.Run("broken data file", func(t *testing.T) {
		data := writeFile(t, "data.json", `{"title":`)

		_, err := execute(t, "preview", tpl, "--data", data)
		assert.ErrorContains(t, err, "failed to parse")
	})
}

func TestWidgetsCmd(t *testing.T) {
	out, err := execute(t, "widgets", "--sample")
	require.NoError(t, err)

	var widgets []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &widgets))
	require.Len(t, widgets, 1)
	assert.Equal(t, "rss", widgets[0]["type"])
	assert.NotNil(t, widgets[0]["schema"])
	assert.NotNil(t, widgets[0]["sampleData"])
}

func TestRootCmdRejectsUnknownCommand(t *testing.T) {
	_, err := execute(t, "publish")
	assert.Error(t, err)
}
