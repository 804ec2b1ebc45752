package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides configuration from environment variables. Unset or
// empty variables leave the current value alone; malformed ones are errors.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"PREFLIGHT_SIZE_SHARES", &c.Preflight.PlannedExitSizeShares},
		{"PREFLIGHT_SPREAD_LIMIT_CENTS", &c.Preflight.SpreadLimitCents},
		{"PREFLIGHT_DEPTH_EXIT_MULT", &c.Preflight.DepthExitMultipleMin},
		{"PREFLIGHT_DEPTH_3TICKS_MULT", &c.Preflight.Depth3TicksMultipleMin},
		{"PREFLIGHT_MAX_EXPOSURE_USD", &c.Preflight.MaxExposureUSD},
	}
	for _, f := range floats {
		if v, ok := get(f.key); ok {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", f.key, err)
			}
			*f.dst = x
		}
	}

	if v, ok := get("PREFLIGHT_STALENESS_LIMIT"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PREFLIGHT_STALENESS_LIMIT: %w", err)
		}
		c.Preflight.StalenessLimitSeconds = n
	}
	if v, ok := get("BTC_MARKET_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BTC_MARKET_LIMIT: %w", err)
		}
		c.Snapshot.MarketLimit = n
	}
	if v, ok := get("POLYGATE_SAFE_MODE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("POLYGATE_SAFE_MODE: %w", err)
		}
		c.Preflight.SafeMode = b
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"POLYMARKET_API_KEY", &c.Exchange.Credentials.APIKey},
		{"POLYMARKET_SECRET", &c.Exchange.Credentials.Secret},
		{"POLYMARKET_PASSPHRASE", &c.Exchange.Credentials.Passphrase},
		{"POLYMARKET_ADDRESS", &c.Exchange.Address},
		{"POLYMARKET_CLOB_URL", &c.Exchange.BaseURL},
		{"POLYMARKET_GAMMA_URL", &c.Exchange.GammaURL},
		{"POLYGATE_SOURCE", &c.Exchange.Source},
		{"POLYGATE_FIXTURE", &c.Exchange.FixturePath},
		{"POLYGATE_SNAPSHOT_PATH", &c.Snapshot.AuditPath},
		{"POLYGATE_JOURNAL_TYPE", &c.Journal.Type},
		{"POLYGATE_JOURNAL_PATH", &c.Journal.Path},
		{"POLYGATE_LOG_LEVEL", &c.Log.Level},
	}
	for _, s := range strs {
		if v, ok := get(s.key); ok {
			*s.dst = v
		}
	}
	return nil
}
