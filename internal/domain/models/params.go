package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Terminal write policies for a decision taken on the final bar.
const (
	TerminalExtend = "extend"
	TerminalDrop   = "drop"
)

// IndicatorParams configures the feature engine.
type IndicatorParams struct {
	ATRSpan          int     `yaml:"atr_span" json:"atr_span" default:"21" validate:"gte=1"`
	BollingerWindow  int     `yaml:"bollinger_window" json:"bollinger_window" default:"14" validate:"gte=2"`
	BollingerStdDev  float64 `yaml:"bollinger_std_dev" json:"bollinger_std_dev" default:"2.5" validate:"gt=0"`
	MACDFast         int     `yaml:"macd_fast" json:"macd_fast" default:"6" validate:"gte=1"`
	MACDSlow         int     `yaml:"macd_slow" json:"macd_slow" default:"12" validate:"gtfield=MACDFast"`
	MACDSignal       int     `yaml:"macd_signal" json:"macd_signal" default:"18" validate:"gte=1"`
	RSILengths       []int   `yaml:"rsi_lengths" json:"rsi_lengths" default:"[14,7]" validate:"min=1,dive,gte=1"`
	RSIPrimary       int     `yaml:"rsi_primary" json:"rsi_primary" default:"14" validate:"gte=1"`
	SupertrendFactor float64 `yaml:"supertrend_factor" json:"supertrend_factor" default:"3" validate:"gt=0"`
	FilterSpan       int     `yaml:"filter_span" json:"filter_span" default:"5" validate:"gte=1"`
	CUSUMWindow      int     `yaml:"cusum_window" json:"cusum_window" default:"4" validate:"gte=2"`
	CUSUMDelta       float64 `yaml:"cusum_delta" json:"cusum_delta" default:"0.8" validate:"gte=0"`
	HurstWindow      int     `yaml:"hurst_window" json:"hurst_window" default:"100" validate:"gte=2"`
	HurstMinSamples  int     `yaml:"hurst_min_samples" json:"hurst_min_samples" default:"20" validate:"gte=2"`
	HurstMinSeries   int     `yaml:"hurst_min_series" json:"hurst_min_series" default:"100" validate:"gte=10"`
	FDIWindow        int     `yaml:"fdi_window" json:"fdi_window" default:"35" validate:"gte=2"`
	ADXPeriod        int     `yaml:"adx_period" json:"adx_period" default:"14" validate:"gte=2"`

	// SupertrendATRLength > 0 gives Supertrend its own SMA-based ATR; 0 reuses the EWMA ATR.
	SupertrendATRLength int `yaml:"supertrend_atr_length" json:"supertrend_atr_length" validate:"gte=0"`
}

// RegimeParams configures the regime classifier.
type RegimeParams struct {
	Window         int     `yaml:"window" json:"window" default:"5" validate:"gte=2"`
	HFactor        float64 `yaml:"h_factor" json:"h_factor" default:"1.5" validate:"gt=0"`
	HurstThreshold float64 `yaml:"hurst_threshold" json:"hurst_threshold" default:"0.5" validate:"gte=0,lte=1"`
	FDIThreshold   float64 `yaml:"fdi_threshold" json:"fdi_threshold" default:"1.5" validate:"gt=0"`
}

// StrategyParams configures entries, exits and trailing stops.
// Longs have no ADX filter and a wider trail than shorts.
type StrategyParams struct {
	LongTrailPct   float64 `yaml:"long_trail_pct" json:"long_trail_pct" default:"0.125" validate:"gt=0,lt=1"`
	ShortTrailPct  float64 `yaml:"short_trail_pct" json:"short_trail_pct" default:"0.05" validate:"gt=0"`
	LongEntryRSI   float64 `yaml:"long_entry_rsi" json:"long_entry_rsi" default:"70" validate:"gte=0,lte=100"`
	ShortEntryRSI  float64 `yaml:"short_entry_rsi" json:"short_entry_rsi" default:"60" validate:"gte=0,lte=100"`
	ShortEntryADX  float64 `yaml:"short_entry_adx" json:"short_entry_adx" default:"35" validate:"gte=0,lte=100"`
	LongExitRSI    float64 `yaml:"long_exit_rsi" json:"long_exit_rsi" default:"90" validate:"gte=0,lte=100"`
	ShortExitRSI   float64 `yaml:"short_exit_rsi" json:"short_exit_rsi" default:"20" validate:"gte=0,lte=100"`
	TerminalPolicy string  `yaml:"terminal_policy" json:"terminal_policy" default:"extend" validate:"oneof=extend drop"`
}

// AccountingParams configures the cumulative return column.
type AccountingParams struct {
	Enabled bool    `yaml:"enabled" json:"enabled" default:"true"`
	Base    float64 `yaml:"base" json:"base" default:"100" validate:"gt=0"`
	// Symmetric compounds long closes too. Off by default.
	Symmetric bool `yaml:"symmetric" json:"symmetric"`
}

// Params is everything a run needs besides the bars.
type Params struct {
	Indicators IndicatorParams  `yaml:"indicators" json:"indicators"`
	Regime     RegimeParams     `yaml:"regime" json:"regime"`
	Strategy   StrategyParams   `yaml:"strategy" json:"strategy"`
	Accounting AccountingParams `yaml:"accounting" json:"accounting"`
}

var paramsValidator = newParamsValidator()

func newParamsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DefaultParams returns the reference parameter set.
func DefaultParams() Params {
	var p Params
	if err := defaults.Set(&p); err != nil {
		panic(fmt.Sprintf("params defaults: %v", err))
	}
	return p
}

// Validate checks every field and returns a ConfigurationError on the first violation.
func (p Params) Validate() error {
	err := paramsValidator.Struct(p)
	if err == nil {
		return p.validateRSIPrimary()
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ConfigurationError{
			Field:  fieldPath(fe.Namespace()),
			Reason: fmt.Sprintf("failed %q (value %v)", fe.Tag(), fe.Value()),
			Err:    err,
		}
	}
	return &ConfigurationError{Field: "params", Reason: "invalid", Err: err}
}

func (p Params) validateRSIPrimary() error {
	for _, l := range p.Indicators.RSILengths {
		if l == p.Indicators.RSIPrimary {
			return nil
		}
	}
	return &ConfigurationError{
		Field:  "indicators.rsi_primary",
		Reason: fmt.Sprintf("%d is not one of rsi_lengths %v", p.Indicators.RSIPrimary, p.Indicators.RSILengths),
	}
}

// WithOverrides merges a JSON document onto a copy of p and re-validates.
// Fields absent from raw keep their current value.
func (p Params) WithOverrides(raw json.RawMessage) (Params, error) {
	out := p
	out.Indicators.RSILengths = append([]int(nil), p.Indicators.RSILengths...)
	if len(raw) == 0 || string(raw) == "null" {
		return out, out.Validate()
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return p, &ConfigurationError{Field: "params", Reason: "malformed overrides", Err: err}
	}
	if err := out.Validate(); err != nil {
		return p, err
	}
	return out, nil
}

func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
