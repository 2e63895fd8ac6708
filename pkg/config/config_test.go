package config

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/pp07/pkg/cli"
	"modernc.org/libqbe"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	for ft := Feature(0); ft < FeatCount; ft++ {
		be.True(t, cfg.IsFeatureEnabled(ft))
	}
	be.True(t, !cfg.IsWarningEnabled(WarnShadow))
	be.True(t, cfg.IsWarningEnabled(WarnUnjoinedRun))
	be.Equal(t, cfg.BackendName, BackendSprockell)
	be.Equal(t, cfg.FeatureMap["char-literals"], FeatCharLiterals)
	be.Equal(t, cfg.WarningMap["unreleased-lock"], WarnUnreleasedLock)
}

func TestApplyStd(t *testing.T) {
	cfg := NewConfig()
	be.Err(t, cfg.ApplyStd("core"), nil)
	be.Equal(t, cfg.StdName, "core")
	be.True(t, !cfg.IsFeatureEnabled(FeatConcurrency))
	be.True(t, !cfg.IsFeatureEnabled(FeatEnums))
	be.True(t, cfg.IsFeatureEnabled(FeatGlobals))
	be.True(t, !cfg.IsWarningEnabled(WarnUnjoinedRun))

	be.Err(t, cfg.ApplyStd("PP07"), nil)
	be.True(t, cfg.IsFeatureEnabled(FeatConcurrency))

	be.Err(t, cfg.ApplyStd("B"), "unsupported standard 'B'. Supported: 'PP07', 'core'")
	be.Equal(t, cfg.StdName, "PP07")
}

func TestSetTarget(t *testing.T) {
	tests := []struct {
		target string
		qbe    string
		err    string
	}{
		{"", "", ""},
		{"sprockell", "", ""},
		{"qbe/arm64", "arm64", ""},
		{"qbe/rv64", "rv64", ""},
		{"sprockell/x86", "", "the sprockell backend takes no ABI, got 'x86'"},
		{"qbe/pdp11", "", "unsupported QBE target 'pdp11'"},
		{"llvm", "", "unsupported backend 'llvm'"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			cfg := NewConfig()
			err := cfg.SetTarget("linux", "amd64", tt.target)
			if tt.err != "" {
				be.Err(t, err, tt.err)
				return
			}
			be.Err(t, err, nil)
			be.Equal(t, cfg.QbeTarget, tt.qbe)
			be.Equal(t, cfg.WordType, "w")
		})
	}
}

func TestSetTargetQBEHostDefault(t *testing.T) {
	cfg := NewConfig()
	be.Err(t, cfg.SetTarget("linux", "amd64", "qbe"), nil)
	be.Equal(t, cfg.BackendName, BackendQBE)
	be.Equal(t, cfg.QbeTarget, libqbe.DefaultTarget("linux", "amd64"))
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warnings, features := cfg.SetupFlagGroups(fs)
	be.Equal(t, len(warnings), int(WarnCount))
	be.Equal(t, len(features), int(FeatCount))

	be.Err(t, fs.Parse([]string{"-Wshadow", "-Wno-extra", "-Fno-enums"}), nil)
	cfg.ApplyFlagGroups(warnings, features)
	be.True(t, cfg.IsWarningEnabled(WarnShadow))
	be.True(t, !cfg.IsWarningEnabled(WarnExtra))
	be.True(t, !cfg.IsFeatureEnabled(FeatEnums))
	be.True(t, cfg.IsFeatureEnabled(FeatGlobals))
}

func TestSetAllWarnings(t *testing.T) {
	cfg := NewConfig()
	cfg.SetAllWarnings(true)
	for wt := Warning(0); wt < WarnCount; wt++ {
		be.True(t, cfg.IsWarningEnabled(wt))
	}
	cfg.SetAllWarnings(false)
	be.True(t, !cfg.IsWarningEnabled(WarnMainParams))
}
