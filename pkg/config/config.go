package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xplshn/pp07/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatConcurrency Feature = iota
	FeatGlobals
	FeatEnums
	FeatCComments
	FeatCharLiterals
	FeatCount
)

type Warning int

const (
	WarnShadow Warning = iota
	WarnUnjoinedRun
	WarnUnreleasedLock
	WarnMainParams
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

const (
	BackendSprockell = "sprockell"
	BackendQBE       = "qbe"
)

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	StdName    string

	BackendName string
	QbeTarget   string
	TargetArch  string
	WordSize    int
	WordType    string

	// Sprockell simulator settings
	Sprockells int
	Debugger   bool
	Verbose    bool
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		StdName:     "PP07",
		BackendName: BackendSprockell,
		Sprockells:  1,
		WordSize:    4,
		WordType:    "w",
	}

	cfg.Features = map[Feature]Info{
		FeatConcurrency:  {"concurrency", true, "Allow 'run', 'join', 'lock', 'unlock' and 'locked'."},
		FeatGlobals:      {"globals", true, "Allow the 'global' declaration modifier."},
		FeatEnums:        {"enums", true, "Allow 'enum' declarations."},
		FeatCComments:    {"c-comments", true, "Recognize '//' line and '/* */' block comments."},
		FeatCharLiterals: {"char-literals", true, "Recognize character literals like 'a'."},
	}

	cfg.Warnings = map[Warning]Info{
		WarnShadow:         {"shadow", false, "Warn when a declaration shadows a variable of an enclosing scope."},
		WarnUnjoinedRun:    {"unjoined-run", true, "Warn about runs whose result is never joined."},
		WarnUnreleasedLock: {"unreleased-lock", true, "Warn about locks that are acquired but never unlocked."},
		WarnMainParams:     {"main-params", true, "Warn when 'main' declares parameters it will never receive."},
		WarnExtra:          {"extra", true, "Enable extra miscellaneous warnings (e.g. unknown flags)."},
	}

	for ft, info := range cfg.Features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range cfg.Warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

// SetTarget selects the backend from a "backend[/abi]" string.
func (c *Config) SetTarget(goos, goarch, target string) error {
	backend, abi, _ := strings.Cut(target, "/")
	if backend == "" {
		backend = BackendSprockell
	}
	c.BackendName, c.TargetArch = backend, goarch

	switch backend {
	case BackendSprockell:
		if abi != "" {
			return fmt.Errorf("the sprockell backend takes no ABI, got '%s'", abi)
		}
		c.WordSize, c.WordType = 4, "w"
	case BackendQBE:
		if abi == "" {
			c.QbeTarget = libqbe.DefaultTarget(goos, goarch)
			c.info("no ABI specified, defaulting to host target '%s'", c.QbeTarget)
		} else {
			c.QbeTarget = abi
		}
		// PP07 integers are 32 bits wide on every QBE target
		c.WordSize, c.WordType = 4, "w"
		switch c.QbeTarget {
		case "amd64_sysv", "amd64_apple", "arm64", "arm64_apple", "rv64":
		default:
			return fmt.Errorf("unsupported QBE target '%s'", c.QbeTarget)
		}
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: '%s', '%s'", backend, BackendSprockell, BackendQBE)
	}
	return nil
}

func (c *Config) info(format string, args ...interface{}) {
	if c.Verbose {
		fmt.Fprintf(os.Stderr, "pp07c: info: "+format+"\n", args...)
	}
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyStd toggles features for a language level. "PP07" is the full language,
// "core" drops the concurrency constructs and enums.
func (c *Config) ApplyStd(stdName string) error {
	type stdSettings struct {
		feature Feature
		pp07    bool
		core    bool
	}
	settings := []stdSettings{
		{FeatConcurrency, true, false},
		{FeatEnums, true, false},
		{FeatGlobals, true, true},
		{FeatCComments, true, true},
		{FeatCharLiterals, true, true},
	}

	switch stdName {
	case "PP07":
		for _, s := range settings {
			c.SetFeature(s.feature, s.pp07)
		}
	case "core":
		for _, s := range settings {
			c.SetFeature(s.feature, s.core)
		}
		c.SetWarning(WarnUnjoinedRun, false)
		c.SetWarning(WarnUnreleasedLock, false)
	default:
		return fmt.Errorf("unsupported standard '%s'. Supported: 'PP07', 'core'", stdName)
	}
	c.StdName = stdName
	return nil
}

// SetupFlagGroups registers -W/-Wno- and -F/-Fno- flags for every warning and
// feature. The returned slices are indexed by Warning and Feature.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) ([]cli.FlagGroupEntry, []cli.FlagGroupEntry) {
	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		enabled, disabled := false, false
		warningFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "W", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled, Default: info.Enabled,
		}
	}

	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		enabled, disabled := false, false
		featureFlags[i] = cli.FlagGroupEntry{
			Name: info.Name, Prefix: "F", Usage: info.Description,
			Enabled: &enabled, Disabled: &disabled, Default: info.Enabled,
		}
	}

	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
	return warningFlags, featureFlags
}

// ApplyFlagGroups copies explicit -W/-F choices over the standard's settings.
func (c *Config) ApplyFlagGroups(warningFlags, featureFlags []cli.FlagGroupEntry) {
	for i, entry := range warningFlags {
		if *entry.Enabled {
			c.SetWarning(Warning(i), true)
		}
		if *entry.Disabled {
			c.SetWarning(Warning(i), false)
		}
	}
	for i, entry := range featureFlags {
		if *entry.Enabled {
			c.SetFeature(Feature(i), true)
		}
		if *entry.Disabled {
			c.SetFeature(Feature(i), false)
		}
	}
}

// SetAllWarnings implements -Wall and -Wno-all
func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		c.SetWarning(i, enabled)
	}
}
