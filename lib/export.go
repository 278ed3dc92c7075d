package lib

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// exportEntry mirrors the per-file shape of the original JSON exports.
type exportEntry struct {
	Path        string `json:"path" yaml:"path"`
	Filename    string `json:"filename" yaml:"filename"`
	Size        int64  `json:"size" yaml:"size"`
	Md5         string `json:"md5,omitempty" yaml:"md5,omitempty"`
	Md5ReadSize int64  `json:"md5_read_size,omitempty" yaml:"md5_read_size,omitempty"`
}

type duplicatesExport struct {
	Cmdline         string                   `json:"cmdline" yaml:"cmdline"`
	RootDirectories []string                 `json:"root_directories" yaml:"root_directories"`
	DuplicateFiles  map[string][]exportEntry `json:"duplicate_files" yaml:"duplicate_files"`
}

type uniquesExport struct {
	Cmdline         string                   `json:"cmdline" yaml:"cmdline"`
	RootDirectories []string                 `json:"root_directories" yaml:"root_directories"`
	UniqueFiles     map[string][]exportEntry `json:"unique_files" yaml:"unique_files"`
}

func exportGroups(groups []*Group) map[string][]exportEntry {
	out := make(map[string][]exportEntry, len(groups))
	for _, group := range groups {
		entries := make([]exportEntry, 0, len(group.Members))
		for _, rec := range group.Members {
			entries = append(entries, exportEntry{
				Path:        rec.Dir,
				Filename:    rec.Name,
				Size:        rec.Size,
				Md5:         rec.Digest,
				Md5ReadSize: rec.DigestReadSize,
			})
		}
		out[group.Key.String()] = entries
	}
	return out
}

// WriteDuplicatesJSON writes the duplicate groups (member count > 1) in the
// original export format: command line, root directories, and a map keyed
// by the rendered compare key.
func WriteDuplicatesJSON(w io.Writer, cmdline string, roots []string, p *Partition) error {
	payload := duplicatesExport{
		Cmdline:         cmdline,
		RootDirectories: roots,
		DuplicateFiles:  exportGroups(p.Duplicates()),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// WriteUniquesJSON writes the single-member groups.
func WriteUniquesJSON(w io.Writer, cmdline string, roots []string, p *Partition) error {
	payload := uniquesExport{
		Cmdline:         cmdline,
		RootDirectories: roots,
		UniqueFiles:     exportGroups(p.Uniques()),
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

// WriteDuplicatesYAML is the YAML flavor of WriteDuplicatesJSON.
func WriteDuplicatesYAML(w io.Writer, cmdline string, roots []string, p *Partition) error {
	payload := duplicatesExport{
		Cmdline:         cmdline,
		RootDirectories: roots,
		DuplicateFiles:  exportGroups(p.Duplicates()),
	}
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(payload)
}

// WriteUniquesYAML is the YAML flavor of WriteUniquesJSON.
func WriteUniquesYAML(w io.Writer, cmdline string, roots []string, p *Partition) error {
	payload := uniquesExport{
		Cmdline:         cmdline,
		RootDirectories: roots,
		UniqueFiles:     exportGroups(p.Uniques()),
	}
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(payload)
}

// WriteCleanupScript emits a deletion script for the duplicate groups. The
// first member of every group is written commented out so at least one copy
// survives; the member order is the scan's deterministic discovery order,
// so "first" is stable across runs. Bat scripts use CRLF line endings.
func WriteCleanupScript(w io.Writer, p *Partition, scriptType ScriptType) error {
	duplicates := p.Duplicates()
	if len(duplicates) == 0 {
		return nil
	}
	eol := "\n"
	commentPrefix := "# "
	if scriptType == ScriptBat {
		eol = "\r\n"
		commentPrefix = "REM "
	}
	var b strings.Builder
	if scriptType == ScriptBash {
		b.WriteString("#!/usr/bin/env bash" + eol)
		b.WriteString("set -euo pipefail" + eol)
		b.WriteString("IFS=$'\\n\\t'" + eol)
		b.WriteString(eol)
		b.WriteString("# Cleanup script generated by fdup" + eol)
		b.WriteString("# WARNING: Review this script before running!" + eol)
		b.WriteString("# The first file in each duplicate group is commented out to preserve at least one copy." + eol)
	} else {
		b.WriteString("@echo off" + eol)
		b.WriteString("setlocal enableextensions" + eol)
		b.WriteString(eol)
		b.WriteString("REM Cleanup script generated by fdup" + eol)
		b.WriteString("REM WARNING: Review this script before running!" + eol)
		b.WriteString("REM The first file in each duplicate group is commented out to preserve at least one copy." + eol)
	}
	b.WriteString(eol)
	for _, group := range duplicates {
		b.WriteString(fmt.Sprintf("%sDuplicate group: %s (%d files)%s", commentPrefix, group.Key.String(), len(group.Members), eol))
		for i, rec := range group.Members {
			cmd := deleteCommand(rec, scriptType)
			if i == 0 {
				b.WriteString(commentPrefix + cmd + eol)
			} else {
				b.WriteString(cmd + eol)
			}
		}
		b.WriteString(eol)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func deleteCommand(rec *FileRecord, scriptType ScriptType) string {
	if scriptType == ScriptBash {
		fullPath := strings.ReplaceAll(rec.Path, `\`, "/")
		escaped := strings.ReplaceAll(fullPath, "'", `'\''`)
		return "rm -f -- '" + escaped + "'"
	}
	fullPath := strings.ReplaceAll(rec.Path, "/", `\`)
	return `del /F /Q "` + fullPath + `"`
}
