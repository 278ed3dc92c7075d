package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/filetools/fdup-go/lib"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess  = 0
	ExitUsage    = 1
	ExitFatal    = 2
	ExitNonFatal = 3
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsage)
	}
}

var compareMode string
var discoveryMode string
var digestMode string
var blockSize int
var maxReadKB int64
var includePatterns []string
var iregex bool
var requireStable bool
var numThreads int
var numHashThreads int
var prescreen bool
var cachePath string
var exportDupFile string
var exportUniqFile string
var exportFormat string
var exportScriptFile string
var scriptTypeName string
var loadConfigFile string
var saveConfigFile string
var quiet bool

var rootCmd = &cobra.Command{
	Use:   "fdup <dir> [<dir>...]",
	Short: "Find duplicate files across directory trees",
	Long: "Scan one or more root directories and group files that are equal by name,\n" +
		"name+size, or content digest. Duplicates, uniques, and skipped files are\n" +
		"reported separately so results can be audited.",
	Args: cobra.ArbitraryArgs,
	RunE: runRoot,
}

func init() {
	rootCmd.Flags().StringVarP(&compareMode, "compare", "c", "name", "Compare mode: name, namesize, digest")
	rootCmd.Flags().StringVarP(&discoveryMode, "find-mode", "f", "walk", "Discovery mode: walk (in-process) or find (GNU find)")
	rootCmd.Flags().StringVar(&digestMode, "digest-mode", "native", "Digest mode: native or md5sum")
	rootCmd.Flags().IntVar(&blockSize, "block-size", lib.DefaultBlockSize, "Chunk size in bytes for incremental digest reads")
	rootCmd.Flags().Int64Var(&maxReadKB, "max-read-kb", 0, "Digest at most this many KiB per file (0 = whole file)")
	rootCmd.Flags().StringSliceVar(&includePatterns, "include", nil, "Include patterns (regex fragments for walk mode, globs for find mode)")
	rootCmd.Flags().BoolVar(&iregex, "iregex", false, "Interpret the single include pattern as a find -iregex expression")
	rootCmd.Flags().BoolVar(&requireStable, "require-stable", false, "Re-stat files around digesting and retry when they change; skip files that stay unstable")
	rootCmd.Flags().IntVar(&numThreads, "threads", 0, "Discovery/stat worker count (0 or 1 = sequential)")
	rootCmd.Flags().IntVar(&numHashThreads, "hash-threads", 0, "Digest worker count (0 = inherit --threads)")
	rootCmd.Flags().BoolVar(&prescreen, "prescreen", true, "Split size classes by a first-block xxhash before full digests")
	rootCmd.Flags().StringVar(&cachePath, "cache", "", "SQLite digest cache path (empty = no cache)")
	rootCmd.Flags().StringVar(&exportDupFile, "export-dup", "", "Export duplicate groups to this file")
	rootCmd.Flags().StringVar(&exportUniqFile, "export-uniq", "", "Export unique files to this file")
	rootCmd.Flags().StringVar(&exportFormat, "export-format", "json", "Export format: json or yaml")
	rootCmd.Flags().StringVar(&exportScriptFile, "export-script", "", "Export a cleanup script that deletes duplicates (first copy preserved)")
	rootCmd.Flags().StringVar(&scriptTypeName, "script-type", defaultScriptTypeName(), "Cleanup script flavor: bash or bat")
	rootCmd.Flags().StringVar(&loadConfigFile, "load-config", "", "Load scan configuration from a JSON file")
	rootCmd.Flags().StringVar(&saveConfigFile, "save-config", "", "Save the merged scan configuration to a JSON file")
	rootCmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress progress, summary, and log-path output (for scripting)")
}

func defaultScriptTypeName() string {
	if runtime.GOOS == "windows" {
		return "bat"
	}
	return "bash"
}

// buildConfig merges an optional config file with the CLI flags. CLI flags
// that were explicitly set win over file values.
func buildConfig(cmd *cobra.Command, args []string) (*lib.ScanConfig, lib.ScriptType, error) {
	scriptType, err := lib.ParseScriptType(scriptTypeName)
	if err != nil {
		return nil, 0, err
	}
	cfg := &lib.ScanConfig{}
	if loadConfigFile != "" {
		file, err := lib.LoadConfigFile(loadConfigFile)
		if err != nil {
			return nil, 0, err
		}
		scriptType, err = file.ApplyTo(cfg, scriptType)
		if err != nil {
			return nil, 0, err
		}
	}
	if len(args) > 0 {
		cfg.Roots = args
	}
	if loadConfigFile == "" || cmd.Flags().Changed("compare") {
		mode, err := lib.ParseCompareMode(compareMode)
		if err != nil {
			return nil, 0, err
		}
		cfg.CompareMode = mode
	}
	if loadConfigFile == "" || cmd.Flags().Changed("find-mode") {
		mode, err := lib.ParseDiscoveryMode(discoveryMode)
		if err != nil {
			return nil, 0, err
		}
		cfg.DiscoveryMode = mode
	}
	if loadConfigFile == "" || cmd.Flags().Changed("digest-mode") {
		mode, err := lib.ParseDigestMode(digestMode)
		if err != nil {
			return nil, 0, err
		}
		cfg.DigestMode = mode
	}
	if loadConfigFile == "" || cmd.Flags().Changed("block-size") {
		cfg.BlockSize = blockSize
	}
	if loadConfigFile == "" || cmd.Flags().Changed("max-read-kb") {
		cfg.MaxReadKB = maxReadKB
	}
	if len(includePatterns) > 0 {
		cfg.IncludePatterns = includePatterns
	}
	if cmd.Flags().Changed("iregex") {
		cfg.IRegex = iregex
	}
	cfg.RequireStable = requireStable
	cfg.Threads = numThreads
	cfg.HashThreads = numHashThreads
	cfg.Prescreen = prescreen
	cfg.CachePath = cachePath
	return cfg, scriptType, nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	cfg, scriptType, err := buildConfig(cmd, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitFatal)
	}
	if len(cfg.Roots) == 0 {
		fmt.Fprintln(os.Stderr, "directories are required (on the command line or in a configuration file)")
		return cmd.Usage()
	}
	if saveConfigFile != "" {
		if err := lib.SaveConfigFile(saveConfigFile, lib.ConfigFileFromScan(cfg, scriptType)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(ExitFatal)
		}
		if !quiet {
			fmt.Fprintln(os.Stderr, "Configuration saved to", saveConfigFile)
		}
	}

	logger, err := lib.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(ExitFatal)
	}
	defer logger.Close()
	if !quiet {
		defer logger.PrintLogPaths()
	}
	logger.Log("started scan: " + strings.Join(cfg.Roots, " "))
	startTime := time.Now()

	hashWorkers := numHashThreads
	if hashWorkers <= 0 {
		hashWorkers = numThreads
	}
	if hashWorkers <= 0 {
		hashWorkers = 1
	}
	statWorkers := numThreads
	if statWorkers <= 0 {
		statWorkers = 1
	}
	poolSize := hashWorkers
	if statWorkers > poolSize {
		poolSize = statWorkers
	}
	counts := &lib.ScanCounts{WorkerProcessed: make([]int32, hashWorkers)}
	util := lib.NewWorkerUtilization(poolSize, 10)

	scanDoneCh := make(chan struct{})
	if !quiet && lib.IsTTY(os.Stderr) {
		go progressLoop(counts, util, scanDoneCh, hashWorkers)
	}
	partition, err := lib.Scan(cfg, logger, counts, util)
	close(scanDoneCh)
	if err != nil {
		logger.Fatal(err)
	}

	duplicates := partition.Duplicates()
	uniques := partition.Uniques()
	printDuplicates(cfg, duplicates)
	if !quiet {
		printSummary(partition, duplicates, uniques, time.Since(startTime), util)
	}

	cmdline := strings.Join(os.Args, " ")
	if exportDupFile != "" {
		writeExport(logger, exportDupFile, func(w *os.File) error {
			if exportFormat == "yaml" {
				return lib.WriteDuplicatesYAML(w, cmdline, cfg.Roots, partition)
			}
			return lib.WriteDuplicatesJSON(w, cmdline, cfg.Roots, partition)
		})
	}
	if exportUniqFile != "" {
		writeExport(logger, exportUniqFile, func(w *os.File) error {
			if exportFormat == "yaml" {
				return lib.WriteUniquesYAML(w, cmdline, cfg.Roots, partition)
			}
			return lib.WriteUniquesJSON(w, cmdline, cfg.Roots, partition)
		})
	}
	if exportScriptFile != "" {
		writeExport(logger, exportScriptFile, func(w *os.File) error {
			return lib.WriteCleanupScript(w, partition, scriptType)
		})
	}

	if logger.NonFatalCount() > 0 {
		if !quiet {
			fmt.Fprintln(os.Stderr, "Errors occurred; check the error log for details.")
		}
		os.Exit(ExitNonFatal)
	}
	return nil
}

func writeExport(logger *lib.Logger, filename string, write func(*os.File) error) {
	file, err := os.Create(filename)
	if err != nil {
		logger.LogError(fmt.Errorf("export %s: %w", filename, err))
		return
	}
	if err := write(file); err != nil {
		logger.LogError(fmt.Errorf("export %s: %w", filename, err))
	}
	if err := file.Close(); err != nil {
		logger.LogError(fmt.Errorf("export %s: %w", filename, err))
		return
	}
	if !quiet {
		fmt.Fprintln(os.Stderr, "Exported to", filename)
	}
}

func printDuplicates(cfg *lib.ScanConfig, duplicates []*lib.Group) {
	if len(duplicates) == 0 {
		fmt.Println("No duplicate files found.")
		return
	}
	truncated := cfg.MaxReadKB > 0
	var coverageMin, coverageMax float64
	coverageSeen := false
	for _, group := range duplicates {
		fmt.Println("  File: " + group.Members[0].Name)
		for _, rec := range group.Members {
			line := fmt.Sprintf("    file: %s, size: %d", rec.Path, rec.Size)
			if cfg.CompareMode == lib.CompareDigest {
				if truncated {
					coverage := 0.0
					if rec.Size > 0 && rec.DigestReadSize > 0 {
						coverage = 100.0 * float64(rec.DigestReadSize) / float64(rec.Size)
					}
					if !coverageSeen || coverage < coverageMin {
						coverageMin = coverage
					}
					if !coverageSeen || coverage > coverageMax {
						coverageMax = coverage
					}
					coverageSeen = true
					line += fmt.Sprintf(", digest coverage: %.2f%%", coverage)
				} else {
					line += ", md5: " + rec.Digest
				}
			}
			fmt.Println(line)
		}
	}
	fmt.Printf("Found: %d groups with duplicates in total\n", len(duplicates))
	if truncated && coverageSeen {
		fmt.Printf("Digest coverage - min: %.2f%% max: %.2f%%\n", coverageMin, coverageMax)
	}
}

func printSummary(p *lib.Partition, duplicates, uniques []*lib.Group, elapsed time.Duration, util *lib.WorkerUtilization) {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintf(os.Stderr, "Summary:\n")
	fmt.Fprintf(os.Stderr, "  Duplicate groups:  %d\n", len(duplicates))
	fmt.Fprintf(os.Stderr, "  Unique files:      %d\n", len(uniques))
	fmt.Fprintf(os.Stderr, "  Skipped files:     %d\n", len(p.Skipped))
	for _, rec := range p.Skipped {
		fmt.Fprintf(os.Stderr, "    skipped: %s (%s)\n", rec.Path, rec.SkipReason)
	}
	fmt.Fprintf(os.Stderr, "  Total time:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "  Worker pool used:  %d%% of workers\n", util.UtilizedPercentWholeRun())
}

func estimateRemainingFromElapsed(elapsed time.Duration, processed, pending int32) time.Duration {
	if processed <= 0 || pending <= 0 {
		return 0
	}
	averagePerFile := elapsed / time.Duration(processed)
	return averagePerFile * time.Duration(pending)
}

func estimateRemainingDuration(processed, pending int32, startTimeUnixNano int64) time.Duration {
	if startTimeUnixNano == 0 {
		return 0
	}
	elapsed := time.Since(time.Unix(0, startTimeUnixNano))
	return estimateRemainingFromElapsed(elapsed, processed, pending)
}

func progressLoop(counts *lib.ScanCounts, util *lib.WorkerUtilization, doneCh <-chan struct{}, numWorkers int) {
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-doneCh:
			fmt.Fprint(os.Stderr, "\r\033[K")
			return
		case <-tick.C:
			hashTotal := atomic.LoadInt32(&counts.HashTotal)
			if hashTotal > 0 {
				processed := atomic.LoadInt32(&counts.HashProcessed)
				pending := hashTotal - processed
				if pending < 0 {
					pending = 0
				}
				startNano := atomic.LoadInt64(&counts.StartTimeUnixNano)
				remaining := estimateRemainingDuration(processed, pending, startNano)
				utilized := util.Tick()
				if remaining > 0 {
					fmt.Fprintf(os.Stderr, "\rhashing: %d of %d, ~%s remaining (%d workers, %d%% busy)   ",
						processed, hashTotal, remaining.Round(time.Second), numWorkers, utilized)
				} else {
					fmt.Fprintf(os.Stderr, "\rhashing: %d of %d (%d workers, %d%% busy)   ",
						processed, hashTotal, numWorkers, utilized)
				}
				continue
			}
			dirs := atomic.LoadInt32(&counts.DirsScanned)
			seen := atomic.LoadInt32(&counts.FilesSeen)
			matched := atomic.LoadInt32(&counts.FilesMatched)
			statted := atomic.LoadInt32(&counts.StatProcessed)
			if seen == 0 && statted == 0 {
				continue
			}
			fmt.Fprintf(os.Stderr, "\rscanning: %d dirs, %d files seen, %d matched, %d statted (%d%% busy)   ",
				dirs, seen, matched, statted, util.Tick())
		}
	}
}
