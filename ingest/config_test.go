package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "csv_config.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadColumnConfigOverridesOnlyMentionedKeys(t *testing.T) {
	path := writeTempConfig(t, "cell = cell_id\ndelimiter = ;\n")

	cfg, err := LoadColumnConfig(path)
	require.NoError(t, err)

	want := DefaultColumnConfig()
	want.CellCol = "cell_id"
	want.Delimiter = ";"
	assert.Equal(t, want, cfg)
}

func TestLoadColumnConfigStripsCommentsAndBlankLines(t *testing.T) {
	path := writeTempConfig(t, "# a full-line comment\n\n  \ntime = ts  # trailing comment\n")

	cfg, err := LoadColumnConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ts", cfg.TimeCol)
}

func TestLoadColumnConfigParsesLengthIsLog(t *testing.T) {
	path := writeTempConfig(t, "length_islog = true\n")
	cfg, err := LoadColumnConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.LengthIsLog)

	path = writeTempConfig(t, "length_islog = not_a_bool\n")
	_, err = LoadColumnConfig(path)
	assert.Error(t, err)
}

func TestLoadColumnConfigRejectsUnrecognizedKey(t *testing.T) {
	path := writeTempConfig(t, "not_a_column = whatever\n")
	_, err := LoadColumnConfig(path)
	assert.Error(t, err)
}

func TestLoadColumnConfigRejectsMissingEquals(t *testing.T) {
	path := writeTempConfig(t, "cell\n")
	_, err := LoadColumnConfig(path)
	assert.Error(t, err)
}

func TestLoadColumnConfigDefaultsWhenFileEmpty(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := LoadColumnConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultColumnConfig(), cfg)
}
