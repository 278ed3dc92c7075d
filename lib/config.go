package lib

import (
	"fmt"
	"regexp"
	"strings"
)

// CompareMode selects how two files are judged equal: by filename, by
// filename plus size, or by content digest.
type CompareMode int

const (
	CompareName CompareMode = iota
	CompareNameSize
	CompareDigest
)

func (m CompareMode) String() string {
	switch m {
	case CompareName:
		return "name"
	case CompareNameSize:
		return "namesize"
	case CompareDigest:
		return "digest"
	default:
		return fmt.Sprintf("CompareMode(%d)", int(m))
	}
}

// ParseCompareMode accepts name, namesize, digest (md5 is an alias for
// digest, matching the original option vocabulary).
func ParseCompareMode(s string) (CompareMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return CompareName, nil
	case "namesize":
		return CompareNameSize, nil
	case "digest", "md5":
		return CompareDigest, nil
	default:
		return 0, &ConfigError{Field: "compare", Reason: fmt.Sprintf("unknown compare mode %q", s)}
	}
}

// DiscoveryMode selects the file-discovery implementation: the in-process
// walker or delegation to GNU find.
type DiscoveryMode int

const (
	DiscoverWalk DiscoveryMode = iota
	DiscoverFindTool
)

func (m DiscoveryMode) String() string {
	switch m {
	case DiscoverWalk:
		return "walk"
	case DiscoverFindTool:
		return "find"
	default:
		return fmt.Sprintf("DiscoveryMode(%d)", int(m))
	}
}

func ParseDiscoveryMode(s string) (DiscoveryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "walk", "default":
		return DiscoverWalk, nil
	case "find":
		return DiscoverFindTool, nil
	default:
		return 0, &ConfigError{Field: "discovery", Reason: fmt.Sprintf("unknown discovery mode %q", s)}
	}
}

// DigestMode selects the digest implementation: in-process incremental MD5
// or delegation to the md5sum utility.
type DigestMode int

const (
	DigestNative DigestMode = iota
	DigestChecksumTool
)

func (m DigestMode) String() string {
	switch m {
	case DigestNative:
		return "native"
	case DigestChecksumTool:
		return "md5sum"
	default:
		return fmt.Sprintf("DigestMode(%d)", int(m))
	}
}

func ParseDigestMode(s string) (DigestMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "native", "default":
		return DigestNative, nil
	case "md5sum":
		return DigestChecksumTool, nil
	default:
		return 0, &ConfigError{Field: "digest-mode", Reason: fmt.Sprintf("unknown digest mode %q", s)}
	}
}

// ScriptType selects the flavor of a generated cleanup script.
type ScriptType int

const (
	ScriptBash ScriptType = iota
	ScriptBat
)

func (t ScriptType) String() string {
	switch t {
	case ScriptBash:
		return "bash"
	case ScriptBat:
		return "bat"
	default:
		return fmt.Sprintf("ScriptType(%d)", int(t))
	}
}

func ParseScriptType(s string) (ScriptType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bash":
		return ScriptBash, nil
	case "bat":
		return ScriptBat, nil
	default:
		return 0, &ConfigError{Field: "script-type", Reason: fmt.Sprintf("unknown script type %q", s)}
	}
}

// ConfigError is a configuration problem detected before the scan starts.
// It is the only fatal error class; everything that goes wrong per file
// during a scan is recorded on the file and never aborts the run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Reason
}

// DefaultBlockSize is the read chunk size for native digest computation
// when ScanConfig.BlockSize is zero.
const DefaultBlockSize = 4096

// ScanConfig is the finalized configuration for one scan. It is immutable
// for the scan's duration; Validate must be called (Scan calls it) before
// any field is consumed.
type ScanConfig struct {
	Roots         []string
	CompareMode   CompareMode
	DiscoveryMode DiscoveryMode
	DigestMode    DigestMode

	// BlockSize is the chunk size in bytes for incremental digest reads;
	// 0 uses DefaultBlockSize.
	BlockSize int

	// MaxReadKB bounds how much of each file is digested, in KiB; 0 reads
	// the whole file. A non-zero bound trades accuracy for speed: files
	// identical only in their digested prefix are reported as duplicates.
	MaxReadKB int64

	// IncludePatterns filters filenames during discovery. Under walk
	// discovery each pattern is a regex fragment searched anywhere in the
	// filename, with literal dots escaped before matching. Under find
	// discovery patterns are -name globs, or one -iregex expression when
	// IRegex is set.
	IncludePatterns []string
	IRegex          bool

	// RequireStable re-stats each file after digesting it and retries when
	// size or mtime moved; a file still unstable after the retries lands in
	// the skipped list.
	RequireStable bool

	// Threads bounds the discovery/stat pool; 0 or 1 means sequential.
	// HashThreads bounds the digest pool; 0 inherits Threads.
	Threads     int
	HashThreads int

	// Prescreen enables the first-block xxhash pass that splits size
	// classes before full digests are computed. It never changes the
	// resulting partition, only the amount of digest work.
	Prescreen bool

	// CachePath names the SQLite digest cache; empty disables caching.
	CachePath string

	// namePatterns holds the compiled walker regexes; set by Validate.
	namePatterns []*regexp.Regexp
}

// Validate checks the configuration and compiles walker include patterns.
// It returns a *ConfigError describing the first problem found.
func (cfg *ScanConfig) Validate() error {
	if len(cfg.Roots) == 0 {
		return &ConfigError{Field: "roots", Reason: "at least one root directory is required"}
	}
	for _, root := range cfg.Roots {
		if err := EnsureDir(root); err != nil {
			return &ConfigError{Field: "roots", Reason: err.Error()}
		}
	}
	if cfg.Threads < 0 {
		return &ConfigError{Field: "threads", Reason: fmt.Sprintf("must be >= 0, got %d", cfg.Threads)}
	}
	if cfg.HashThreads < 0 {
		return &ConfigError{Field: "hash-threads", Reason: fmt.Sprintf("must be >= 0, got %d", cfg.HashThreads)}
	}
	if cfg.BlockSize < 0 {
		return &ConfigError{Field: "block-size", Reason: fmt.Sprintf("must be >= 0, got %d", cfg.BlockSize)}
	}
	if cfg.MaxReadKB < 0 {
		return &ConfigError{Field: "max-read-kb", Reason: fmt.Sprintf("must be >= 0, got %d", cfg.MaxReadKB)}
	}
	if cfg.IRegex && len(cfg.IncludePatterns) != 1 {
		return &ConfigError{Field: "iregex", Reason: "exactly one include pattern is required when iregex is enabled"}
	}
	if cfg.DiscoveryMode == DiscoverWalk {
		patterns, err := compileNamePatterns(cfg.IncludePatterns)
		if err != nil {
			return err
		}
		cfg.namePatterns = patterns
	}
	return nil
}

// compileNamePatterns turns include patterns into walker regexes, escaping
// literal dots first so ".jpg" matches the extension and not "xjpg".
func compileNamePatterns(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		normalized := strings.ReplaceAll(pattern, ".", `\.`)
		re, err := regexp.Compile(normalized)
		if err != nil {
			return nil, &ConfigError{Field: "include", Reason: fmt.Sprintf("invalid pattern %q: %v", pattern, err)}
		}
		out = append(out, re)
	}
	return out, nil
}

// effectiveBlockSize resolves the zero default.
func (cfg *ScanConfig) effectiveBlockSize() int {
	if cfg.BlockSize <= 0 {
		return DefaultBlockSize
	}
	return cfg.BlockSize
}

// maxReadBytes converts the KiB budget to bytes; 0 means no budget.
func (cfg *ScanConfig) maxReadBytes() int64 {
	if cfg.MaxReadKB <= 0 {
		return 0
	}
	return cfg.MaxReadKB * 1024
}

// statThreads is the effective discovery/stat pool size.
func (cfg *ScanConfig) statThreads() int {
	if cfg.Threads <= 1 {
		return 1
	}
	return cfg.Threads
}

// hashThreads is the effective digest pool size; 0 inherits the stat pool.
func (cfg *ScanConfig) hashThreads() int {
	if cfg.HashThreads > 0 {
		return cfg.HashThreads
	}
	return cfg.statThreads()
}
