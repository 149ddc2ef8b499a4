package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/recon/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"Shared", "Deeper", "SLS"}, c.Groups())

	whois, err := c.Resource("whois")
	require.NoError(t, err)
	assert.Equal(t, "deeper/whois", whois.Path)
	assert.Equal(t, "{type}/{id}", whois.ItemPath)

	asn, err := c.Resource("asn")
	require.NoError(t, err)
	assert.Equal(t, DefaultItemPath, asn.ItemPath)
	assert.NotEmpty(t, asn.EditableColumns())

	alerts, err := c.Resource("alerts")
	require.NoError(t, err)
	assert.True(t, alerts.HasCategories())
	assert.Equal(t, domain.CategoryAll, alerts.Categories[0])
	assert.True(t, alerts.ReadOnly)

	for _, r := range c.Resources {
		for _, col := range r.Columns {
			assert.Positive(t, col.Width, "%s.%s", r.Key, col.Path)
			assert.NotEmpty(t, col.Kind)
		}
	}
}

func TestResourceUnknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Resource("nope")
	assert.ErrorIs(t, err, domain.ErrUnknownResource)
}

func TestCommand(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	preset, ok := c.Preset("asn")
	require.True(t, ok)
	assert.True(t, preset.NeedsTarget)
	assert.True(t, preset.LastRun)

	cmd, err := c.Command(Invocation{
		Binary:  "deep",
		Mode:    preset.Mode,
		Program: "acme",
		Target:  "15768",
		LastRun: true,
		Verbose: true,
	})
	require.NoError(t, err)
	assert.Equal(t, `deep -m asn -p "acme" -t "15768" -lr -v`, cmd)

	cmd, err = c.Command(Invocation{Binary: "deep", Mode: "multi", Program: "acme"})
	require.NoError(t, err)
	assert.Equal(t, `deep -m multi -p "acme" -t ""`, cmd)

	_, err = c.Command(Invocation{Binary: "deep"})
	assert.ErrorIs(t, err, domain.ErrEmptyCommand)
}

func TestLoadOverride(t *testing.T) {
	file := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
resources:
  - key: hosts
    path: /lab/hosts/
    columns:
      - { path: name }
`), 0o644))

	c, err := Load(file)
	require.NoError(t, err)

	r, err := c.Resource("hosts")
	require.NoError(t, err)
	assert.Equal(t, "lab/hosts", r.Path)
	assert.Equal(t, "hosts", r.Title)
	assert.Equal(t, "name", r.Columns[0].Header)
	assert.Equal(t, domain.KindText, r.Columns[0].Kind)

	_, err = c.Command(Invocation{Mode: "x"})
	assert.Error(t, err)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", `resources: []`},
		{"missing path", "resources:\n  - key: a\n    columns: [{path: x}]"},
		{"duplicate", "resources:\n  - {key: a, path: a, columns: [{path: x}]}\n  - {key: a, path: b, columns: [{path: x}]}"},
		{"no columns", "resources:\n  - {key: a, path: a}"},
		{"bad template", "command_template: '{{.Mode'\nresources:\n  - {key: a, path: a, columns: [{path: x}]}"},
		{"not yaml", "resources: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
