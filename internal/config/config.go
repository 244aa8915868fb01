// Package config resolves vrcnexus settings from the config file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Haor/vrc-nexus/internal/community"
)

// Auto selects the adaptive value of a numeric setting.
const Auto = "auto"

// Setting keys. Flag names match these so cobra flags bind directly.
const (
	KeyHalfLife       = "halflife"
	KeyRecent         = "recent"
	KeyAlgorithm      = "algorithm"
	KeyResolution     = "resolution"
	KeyRuns           = "runs"
	KeyTheta          = "theta"
	KeySeed           = "seed"
	KeyEdgeWeighting  = "edge-weighting"
	KeyTimezone       = "timezone"
	KeyHiddenQuantile = "hidden-quantile"
	KeyNeutralBond    = "neutral-bond"
	KeyDB             = "db"
	KeyWin            = "win"
	KeyPrefix         = "prefix"
	KeyTop            = "top"
	KeyLogLevel       = "log-level"
	KeyHistory        = "history"
)

// Defaults for every key.
var defaults = map[string]interface{}{
	KeyHalfLife:       Auto,
	KeyRecent:         Auto,
	KeyAlgorithm:      string(community.Leiden),
	KeyResolution:     Auto,
	KeyRuns:           community.DefaultRuns,
	KeyTheta:          community.DefaultTheta,
	KeySeed:           42,
	KeyEdgeWeighting:  string(community.WeightUnit),
	KeyTimezone:       "Local",
	KeyHiddenQuantile: 0.7,
	KeyNeutralBond:    0.5,
	KeyDB:             "VRCX.sqlite3",
	KeyWin:            false,
	KeyPrefix:         "",
	KeyTop:            25,
	KeyLogLevel:       "warn",
	KeyHistory:        "",
}

// ErrInvalid wraps every configuration validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Settings is the validated configuration of one analysis.
type Settings struct {
	HalfLife         float64 // days; 0 means auto
	RecentWindow     int     // days; 0 means auto
	Algorithm        community.Algorithm
	Resolution       float64 // 0 means auto
	Runs             int
	Theta            float64
	Seed             int64
	EdgeWeighting    community.Weighting
	Timezone         string
	Location         *time.Location
	HiddenQuantile   float64
	NeutralBondRatio float64
	DB               string
	Win              bool
	Prefix           string
	Top              int
	LogLevel         string
	History          string
}

// Default returns the built-in settings. Unlike New it reads neither the
// config file nor the environment.
func Default() (Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return Load(v)
}

// Keys returns every setting key in display order.
func Keys() []string {
	return []string{
		KeyDB, KeyWin, KeyPrefix, KeyHistory,
		KeyHalfLife, KeyRecent, KeyTimezone,
		KeyAlgorithm, KeyResolution, KeyRuns, KeyTheta, KeySeed, KeyEdgeWeighting,
		KeyHiddenQuantile, KeyNeutralBond,
		KeyTop, KeyLogLevel,
	}
}

// Dir returns the vrcnexus config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/vrcnexus if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "vrcnexus"), nil
}

// DataDir returns ~/.vrcnexus, where run history is kept.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vrcnexus"), nil
}

// New returns a viper instance with defaults, the config search path and
// VRCNEXUS_* environment overrides registered.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("VRCNEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile loads the config file. An explicit path must exist; when path is
// empty the default location is tried and a missing file is not an error.
// It returns the file actually used, if any.
func ReadFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load reads every key from v and validates the result.
func Load(v *viper.Viper) (Settings, error) {
	var errs []error
	invalid := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalid}, args...)...))
	}

	s := Settings{
		Runs:             v.GetInt(KeyRuns),
		Theta:            v.GetFloat64(KeyTheta),
		Seed:             v.GetInt64(KeySeed),
		Timezone:         strings.TrimSpace(v.GetString(KeyTimezone)),
		HiddenQuantile:   v.GetFloat64(KeyHiddenQuantile),
		NeutralBondRatio: v.GetFloat64(KeyNeutralBond),
		DB:               v.GetString(KeyDB),
		Win:              v.GetBool(KeyWin),
		Prefix:           strings.TrimSpace(v.GetString(KeyPrefix)),
		Top:              v.GetInt(KeyTop),
		LogLevel:         v.GetString(KeyLogLevel),
		History:          v.GetString(KeyHistory),
	}

	halfLife, err := ParseAuto(v.GetString(KeyHalfLife))
	if err != nil {
		invalid("%s: %v", KeyHalfLife, err)
	}
	s.HalfLife = halfLife

	recent, err := ParseAuto(v.GetString(KeyRecent))
	if err != nil {
		invalid("%s: %v", KeyRecent, err)
	} else if recent != 0 && recent != float64(int(recent)) {
		invalid("%s: must be a whole number of days, got %v", KeyRecent, recent)
	}
	s.RecentWindow = int(recent)

	resolution, err := ParseAuto(v.GetString(KeyResolution))
	if err != nil {
		invalid("%s: %v", KeyResolution, err)
	}
	s.Resolution = resolution

	algo, err := community.ParseAlgorithm(v.GetString(KeyAlgorithm))
	if err != nil {
		invalid("%s: %v", KeyAlgorithm, err)
	}
	s.Algorithm = algo

	switch w := community.Weighting(strings.ToLower(strings.TrimSpace(v.GetString(KeyEdgeWeighting)))); w {
	case community.WeightUnit, community.WeightShared:
		s.EdgeWeighting = w
	default:
		invalid("%s: must be %q or %q, got %q", KeyEdgeWeighting, community.WeightUnit, community.WeightShared, w)
	}

	loc, err := LoadLocation(s.Timezone)
	if err != nil {
		invalid("%s: %v", KeyTimezone, err)
	}
	s.Location = loc

	if s.Runs <= 0 {
		invalid("%s: must be > 0, got %d", KeyRuns, s.Runs)
	}
	if s.Theta <= 0 {
		invalid("%s: must be > 0, got %v", KeyTheta, s.Theta)
	}
	if s.HiddenQuantile <= 0 || s.HiddenQuantile >= 1 {
		invalid("%s: must be in (0, 1), got %v", KeyHiddenQuantile, s.HiddenQuantile)
	}
	if s.NeutralBondRatio < 0 || s.NeutralBondRatio > 1 {
		invalid("%s: must be in [0, 1], got %v", KeyNeutralBond, s.NeutralBondRatio)
	}
	if s.Top <= 0 {
		invalid("%s: must be > 0, got %d", KeyTop, s.Top)
	}

	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}
	return s, nil
}

// ParseAuto parses a positive number or "auto". Auto and the empty string
// yield 0.
func ParseAuto(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, Auto) {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a number or %q, got %q", Auto, raw)
	}
	if f <= 0 {
		return 0, fmt.Errorf("must be > 0, got %v", f)
	}
	return f, nil
}

// FormatAuto renders a value parsed by ParseAuto.
func FormatAuto(f float64) string {
	if f == 0 {
		return Auto
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// LoadLocation resolves a time zone name; "" and "Local" mean the system zone.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// DatabasePath returns the VRCX database to read. With Win set it is the
// default Windows install location under %APPDATA%.
func (s Settings) DatabasePath() (string, error) {
	if s.Win {
		appdata := os.Getenv("APPDATA")
		if appdata == "" {
			return "", errors.New("APPDATA is not set; pass --db instead of --win")
		}
		return filepath.Join(appdata, "VRCX", "VRCX.sqlite3"), nil
	}
	return expandHome(s.DB)
}

// HistoryPath returns the run-history database path.
func (s Settings) HistoryPath() (string, error) {
	if s.History != "" {
		return expandHome(s.History)
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nexus.db"), nil
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
