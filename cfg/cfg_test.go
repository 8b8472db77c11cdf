package cfg_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"texttoaudio/cfg"
	"texttoaudio/pkg/inference"

	"github.com/stretchr/testify/require"
)

func TestLoadExpandsEnvAndAppliesDefaults(t *testing.T) {
	assert := require.New(t)

	t.Setenv("TEST_HF_TOKEN", "hf_from_env")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	assert.NoError(os.WriteFile(path, []byte(`
inference:
  model: facebook/musicgen-small
  access_token: ${TEST_HF_TOKEN}
  timeout: 15s
announce:
  engine_urls: ["http://engine:8080"]
`), 0o600))

	c, err := cfg.Load(path)
	assert.NoError(err)

	assert.Equal("hf_from_env", c.Inference.AccessToken)
	assert.Equal(15*time.Second, c.Inference.Timeout)
	assert.Equal(inference.DefaultURL, c.Inference.URL)
	assert.Equal(8080, c.Api.Port)
	assert.Equal([]string{"http://engine:8080"}, c.Announce.EngineURLs)
	assert.Equal(5, c.Announce.Retries)
	assert.Equal("info", c.Log.Level)
	assert.Equal("text", c.Log.Format)
}

func TestParseRequiresModelAndCredential(t *testing.T) {
	_, err := cfg.Parse([]byte("api:\n  port: 9000\n"))

	require.ErrorContains(t, err, "inference.model is required")
	require.ErrorContains(t, err, "inference.access_token is required")
}

func TestParseInfluxNeedsBucket(t *testing.T) {
	_, err := cfg.Parse([]byte(`
inference:
  model: m
  access_token: t
influx:
  url: http://influx:8086
`))

	require.ErrorContains(t, err, "influx.org and influx.bucket are required")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := cfg.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestExampleConfigParses(t *testing.T) {
	t.Setenv("HF_API_TOKEN", "hf_example")

	c, err := cfg.Load("cfg.yaml")
	require.NoError(t, err)
	require.Equal(t, "facebook/musicgen-small", c.Inference.Model)
	require.False(t, c.InfluxDB.Enabled())
}
