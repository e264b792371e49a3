package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	findings := cfg.Validate()
	assert.Empty(t, findings, "default config must validate cleanly: %v", findings)
}

func TestLoad_LayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
label: trendgate-gbpusd
symbol:
  symbol: GBPUSD
  pip_size: 0.0001
  pip_value: 0.0001
  digits: 5
  volume_min: 1000
  volume_max: 500000
  volume_step: 1000
regime:
  strategy: momentum
  momentum:
    lookback: 12
    threshold_pips: 25
filter:
  kind: none
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "trendgate-gbpusd", cfg.Label)
	assert.Equal(t, "GBPUSD", cfg.Symbol.Symbol)
	assert.Equal(t, "momentum", cfg.Regime.Strategy)
	assert.Equal(t, 12, cfg.Regime.Momentum.Lookback)
	assert.Equal(t, "none", cfg.Filter.Kind)
	// Untouched sections keep their defaults
	assert.Equal(t, 500, cfg.History.PrimaryCapacity)
	assert.Equal(t, 20.0, cfg.Risk.StopLossPips)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestValidate_CollectsFindings(t *testing.T) {
	cfg := Default()
	cfg.Label = ""
	cfg.Symbol.PipSize = 0
	cfg.Regime.Strategy = "astrology"
	cfg.Risk.RiskPercent = 150
	cfg.Journal.Enabled = true

	findings := cfg.Validate()
	assert.GreaterOrEqual(t, len(findings), 5)
}

func TestClassifierSelection(t *testing.T) {
	cfg := Default()

	cfg.Regime.Strategy = "momentum"
	cfg.Regime.Momentum.PipSize = 0 // Falls back to symbol pip size
	c := cfg.Classifier()
	require.NotNil(t, c)

	cfg.Regime.Strategy = "channel_slope"
	require.NotNil(t, cfg.Classifier())
}

func TestFilterSelection(t *testing.T) {
	cfg := Default()

	cfg.Filter.Kind = "none"
	assert.Equal(t, "unconditional", cfg.ConfirmationFilter().Name())

	cfg.Filter.Kind = "oscillator"
	assert.Equal(t, "oscillator", cfg.ConfirmationFilter().Name())

	cfg.Filter.Kind = "crossover"
	assert.Equal(t, "crossover", cfg.ConfirmationFilter().Name())
}

func TestSessionProfiles(t *testing.T) {
	sc := DefaultSessionsConfig()

	profile, err := sc.GetActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, "London", profile.Name)
	assert.Empty(t, profile.Validate())

	gc := profile.GateConfig()
	assert.Equal(t, 8, gc.SessionStartHour)
	assert.Equal(t, 18, gc.SessionEndHour)
	assert.True(t, gc.OneTradePerDay)

	sc.Active = "missing"
	_, err = sc.GetActiveProfile()
	require.Error(t, err)
}

func TestSessionProfile_Validate(t *testing.T) {
	bad := SessionProfile{Name: "bad", StartHour: 22, EndHour: 6}
	findings := bad.Validate()
	assert.NotEmpty(t, findings)
}

func TestLoadSessionsConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.yaml")
	content := []byte(`
active_profile: tokyo
profiles:
  tokyo:
    name: Tokyo
    start_hour: 0
    end_hour: 8
    one_per_day: true
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	sc, err := LoadSessionsConfig(path)
	require.NoError(t, err)

	profile, err := sc.GetActiveProfile()
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", profile.Name)
	assert.Equal(t, 8, profile.EndHour)
}
