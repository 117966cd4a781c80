package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/voshond/mwsync/internal/filesys"
)

var (
	// ErrMissingInput is returned when a source or target document does not exist.
	ErrMissingInput = errors.New("configuration file not found")
	// ErrEncoding is returned when a document is not valid UTF-8.
	ErrEncoding = errors.New("configuration file is not valid UTF-8")
	// ErrBackup is returned when the backup artifact cannot be written.
	ErrBackup = errors.New("backup failed")
	// ErrWrite is returned when the merged document cannot be committed.
	ErrWrite = errors.New("commit failed")
)

const (
	// BackupSuffix is appended to the target path to name the backup artifact.
	BackupSuffix = ".backup"
	// DefaultSearchPathKey is the directive key declaring a content-search directory.
	DefaultSearchPathKey = "data"
	// DefaultContentKey is the directive key declaring a loadable content unit.
	DefaultContentKey = "content"
)

// Input carries everything one reconcile run needs. SourcePath is read-only
// and holds the configuration treated as the truth for mod state; TargetPath
// is rewritten in place. BaseData is the destination environment's primary
// game-data directory, emitted as the first search-path directive.
type Input struct {
	SourcePath string
	TargetPath string
	BaseData   string
	Rules      Ruleset

	// Directive key spellings. Zero values mean the OpenMW defaults
	// ("data" and "content").
	SearchPathKey string
	ContentKey    string

	// FS defaults to the local disk. Injected in tests.
	FS filesys.FileOps
}

func (in *Input) setDefaults() {
	if in.SearchPathKey == "" {
		in.SearchPathKey = DefaultSearchPathKey
	}
	if in.ContentKey == "" {
		in.ContentKey = DefaultContentKey
	}
	if in.FS == nil {
		in.FS = filesys.OS()
	}
}

// DropReason explains why a source search-path directive was not carried
// into the merged document.
type DropReason string

const (
	// DropExcluded marks directives matching an exclusion pattern (the
	// source's own game-data root, scratch directories).
	DropExcluded DropReason = "excluded"
	// DropUnmatched marks directives no translation rule recognized.
	// Dropping beats guessing a broken destination path.
	DropUnmatched DropReason = "unmatched"
)

// Dropped is one source directive left out of the merge, kept for auditing.
type Dropped struct {
	Line   string
	Reason DropReason
}

// Report summarizes a completed reconcile run.
type Report struct {
	RunID          string
	BackupPath     string
	SearchPaths    int // emitted search-path directives, base root included
	ContentEntries int
	CarryOver      int // opaque target lines retained
	Dropped        []Dropped
}

// Reconcile merges the mod configuration from the source document into the
// target document. The run is a single linear pipeline:
//
//  1. read and validate both documents (no writes on failure)
//  2. back up the target's current bytes next to it
//  3. keep every target line that is not a search-path or content directive
//  4. emit the base search-path directive, then the source's search-path
//     directives translated through the ruleset (exclusions and unrecognized
//     layouts are dropped and reported)
//  5. append the source's content directives verbatim
//  6. commit the assembled document atomically over the target
//
// An interrupted commit leaves the target either fully old or fully new.
func Reconcile(in Input) (*Report, error) {
	in.setDefaults()

	srcRaw, err := readDocument(in.FS, in.SourcePath)
	if err != nil {
		return nil, err
	}
	tgtRaw, err := readDocument(in.FS, in.TargetPath)
	if err != nil {
		return nil, err
	}

	mode := os.FileMode(0o644)
	if info, err := in.FS.Stat(in.TargetPath); err == nil {
		mode = info.Mode().Perm()
	}

	backupPath := in.TargetPath + BackupSuffix
	if err := in.FS.WriteFile(backupPath, tgtRaw, mode); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBackup, backupPath, err)
	}

	srcPaths, srcContent := collectDirectives(srcRaw, in.SearchPathKey, in.ContentKey)

	var out []string
	for _, line := range splitLines(tgtRaw) {
		t := strings.TrimSpace(line)
		if isDirective(t, in.SearchPathKey) || isDirective(t, in.ContentKey) {
			continue
		}
		out = append(out, line)
	}
	carry := len(out)

	out = append(out, quoteDirective(in.SearchPathKey, in.BaseData))
	searchPaths := 1

	var dropped []Dropped
	for _, line := range srcPaths {
		val := directiveValue(line, in.SearchPathKey)
		if in.Rules.Excluded(val) {
			dropped = append(dropped, Dropped{Line: line, Reason: DropExcluded})
			continue
		}
		translated, ok := in.Rules.Translate(val)
		if !ok {
			dropped = append(dropped, Dropped{Line: line, Reason: DropUnmatched})
			continue
		}
		out = append(out, quoteDirective(in.SearchPathKey, translated))
		searchPaths++
	}

	out = append(out, srcContent...)

	merged := strings.Join(out, "\n") + "\n"
	if err := filesys.AtomicWrite(in.FS, in.TargetPath, []byte(merged), mode); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWrite, in.TargetPath, err)
	}

	return &Report{
		RunID:          uuid.NewString(),
		BackupPath:     backupPath,
		SearchPaths:    searchPaths,
		ContentEntries: len(srcContent),
		CarryOver:      carry,
		Dropped:        dropped,
	}, nil
}

func readDocument(fileOps filesys.FileOps, path string) ([]byte, error) {
	raw, err := fileOps.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: %s", ErrEncoding, path)
	}
	return raw, nil
}

// collectDirectives scans a document and returns its search-path and content
// directive lines in original order, whitespace-trimmed. Everything else in
// the source document is irrelevant to the merge.
func collectDirectives(raw []byte, searchKey, contentKey string) (paths, content []string) {
	for _, line := range splitLines(raw) {
		t := strings.TrimSpace(line)
		switch {
		case isDirective(t, searchKey):
			paths = append(paths, t)
		case isDirective(t, contentKey):
			content = append(content, t)
		}
	}
	return paths, content
}

// splitLines splits on newlines, tolerating CRLF endings (the source
// document usually comes from a Windows install). The trailing empty
// element from a final newline is discarded.
func splitLines(raw []byte) []string {
	lines := strings.Split(string(raw), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func isDirective(trimmed, key string) bool {
	return strings.HasPrefix(trimmed, key+"=")
}

// directiveValue returns the directive's value with surrounding quotes
// stripped; internal formatting is preserved.
func directiveValue(trimmed, key string) string {
	return strings.Trim(trimmed[len(key)+1:], `"`)
}

// quoteDirective re-applies quoting on emission: search paths routinely
// contain spaces ("Data Files"), so values are always quoted.
func quoteDirective(key, value string) string {
	return key + `="` + value + `"`
}
