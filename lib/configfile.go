package lib

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Scan-configuration persistence for the CLI front-end. The on-disk format
// is the original fdup_cfg.json contract: version 1 with upper-case mode
// names, so config files move between implementations unchanged. The core
// scanner never reads or writes these files.

const (
	ConfigVersion         = 1
	DefaultConfigFilename = "fdup_cfg.json"
)

// ConfigFile is the serialized scan configuration.
type ConfigFile struct {
	Version         int      `json:"version"`
	Directories     []string `json:"directories,omitempty"`
	CompareMode     string   `json:"compare_mode,omitempty"`
	FindMode        string   `json:"find_mode,omitempty"`
	Md5Mode         string   `json:"md5_mode,omitempty"`
	Md5BlockSize    int      `json:"md5_block_size,omitempty"`
	Md5MaxSize      int64    `json:"md5_max_size,omitempty"`
	IncludePatterns []string `json:"include_patterns,omitempty"`
	IRegex          bool     `json:"iregex,omitempty"`
	ScriptType      string   `json:"script_type,omitempty"`
}

// ConfigFileFromScan serializes a scan configuration.
func ConfigFileFromScan(cfg *ScanConfig, scriptType ScriptType) *ConfigFile {
	out := &ConfigFile{
		Version:         ConfigVersion,
		Directories:     cfg.Roots,
		CompareMode:     compareModeFileName(cfg.CompareMode),
		FindMode:        findModeFileName(cfg.DiscoveryMode),
		Md5Mode:         md5ModeFileName(cfg.DigestMode),
		Md5BlockSize:    cfg.BlockSize,
		Md5MaxSize:      cfg.MaxReadKB,
		IncludePatterns: cfg.IncludePatterns,
		IRegex:          cfg.IRegex,
		ScriptType:      strings.ToUpper(scriptType.String()),
	}
	return out
}

// ApplyTo copies the file's values onto cfg; absent fields leave cfg alone.
// It returns the script type carried by the file (or the given default).
func (f *ConfigFile) ApplyTo(cfg *ScanConfig, defaultScript ScriptType) (ScriptType, error) {
	if len(f.Directories) > 0 {
		cfg.Roots = f.Directories
	}
	if f.CompareMode != "" {
		mode, err := parseCompareModeFileName(f.CompareMode)
		if err != nil {
			return defaultScript, err
		}
		cfg.CompareMode = mode
	}
	if f.FindMode != "" {
		mode, err := parseFindModeFileName(f.FindMode)
		if err != nil {
			return defaultScript, err
		}
		cfg.DiscoveryMode = mode
	}
	if f.Md5Mode != "" {
		mode, err := parseMd5ModeFileName(f.Md5Mode)
		if err != nil {
			return defaultScript, err
		}
		cfg.DigestMode = mode
	}
	if f.Md5BlockSize != 0 {
		cfg.BlockSize = f.Md5BlockSize
	}
	if f.Md5MaxSize != 0 {
		cfg.MaxReadKB = f.Md5MaxSize
	}
	if len(f.IncludePatterns) > 0 {
		cfg.IncludePatterns = f.IncludePatterns
	}
	if f.IRegex {
		cfg.IRegex = true
	}
	script := defaultScript
	if f.ScriptType != "" {
		parsed, err := ParseScriptType(f.ScriptType)
		if err != nil {
			return defaultScript, err
		}
		script = parsed
	}
	return script, nil
}

// LoadConfigFile reads a JSON scan configuration.
func LoadConfigFile(filename string) (*ConfigFile, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("load configuration %s: %w", filename, err)
	}
	var out ConfigFile
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse configuration %s: %w", filename, err)
	}
	return &out, nil
}

// SaveConfigFile writes the configuration as indented JSON.
func SaveConfigFile(filename string, f *ConfigFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save configuration %s: %w", filename, err)
	}
	return nil
}

// File-format mode names predate this implementation; they stay upper case
// with MD5/DEFAULT/FIND/MD5SUM vocabulary for compatibility.

func compareModeFileName(m CompareMode) string {
	switch m {
	case CompareName:
		return "NAME"
	case CompareNameSize:
		return "NAMESIZE"
	default:
		return "MD5"
	}
}

func parseCompareModeFileName(s string) (CompareMode, error) {
	switch strings.ToUpper(s) {
	case "NAME":
		return CompareName, nil
	case "NAMESIZE":
		return CompareNameSize, nil
	case "MD5":
		return CompareDigest, nil
	default:
		return 0, &ConfigError{Field: "compare_mode", Reason: fmt.Sprintf("unknown value %q", s)}
	}
}

func findModeFileName(m DiscoveryMode) string {
	if m == DiscoverFindTool {
		return "FIND"
	}
	return "DEFAULT"
}

func parseFindModeFileName(s string) (DiscoveryMode, error) {
	switch strings.ToUpper(s) {
	case "DEFAULT":
		return DiscoverWalk, nil
	case "FIND":
		return DiscoverFindTool, nil
	default:
		return 0, &ConfigError{Field: "find_mode", Reason: fmt.Sprintf("unknown value %q", s)}
	}
}

func md5ModeFileName(m DigestMode) string {
	if m == DigestChecksumTool {
		return "MD5SUM"
	}
	return "DEFAULT"
}

func parseMd5ModeFileName(s string) (DigestMode, error) {
	switch strings.ToUpper(s) {
	case "DEFAULT":
		return DigestNative, nil
	case "MD5SUM":
		return DigestChecksumTool, nil
	default:
		return 0, &ConfigError{Field: "md5_mode", Reason: fmt.Sprintf("unknown value %q", s)}
	}
}
