// Package frontmatter reads and edits the sync metadata embedded in a
// page's front-matter block. Edits are line-targeted: unrelated keys keep
// their order, formatting and position byte for byte.
package frontmatter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// KeySyncCommit records the default-language commit the translation was
	// last verified against.
	KeySyncCommit = "default_lang_commit"
	// KeyDrifted records whether the default-language page has changed since.
	KeyDrifted = "drifted_from_default"

	delimiter = "---"
)

// Drifted is the tri-state value of the drifted_from_default key. Absence of
// the key means "unknown / not drifted", so False is never written to disk.
type Drifted string

const (
	DriftedTrue  Drifted = "true"
	DriftedFalse Drifted = "false"
	// DriftedFileNotFound marks a translation whose default-language
	// counterpart no longer exists.
	DriftedFileNotFound Drifted = "file not found"
)

// PreconditionError reports an attempt to record drift status on a file that
// has no sync baseline.
type PreconditionError struct {
	Path string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot set drift status: %s has no %s", e.Path, KeySyncCommit)
}

// Block is a page's parsed front-matter block plus its untouched body
type Block struct {
	path  string
	lines []string // raw lines between the delimiters, order preserved
	body  []byte   // everything after the closing delimiter, byte-exact
	dirty bool
}

// Load reads path and parses its leading front-matter block. A file without
// a block is valid: the block is synthesized on the first mutation.
func Load(path string) (*Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	b := &Block{path: path, body: data}

	open := []byte(delimiter + "\n")
	if !bytes.HasPrefix(data, open) {
		return b, nil
	}

	// Scan line by line for the closing delimiter. An unterminated block is
	// treated as no block at all rather than guessing at its extent.
	rest := data[len(open):]
	var lines []string
	for len(rest) > 0 {
		line := rest
		next := []byte(nil)
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line = rest[:i]
			next = rest[i+1:]
		}
		if string(line) == delimiter {
			b.lines = lines
			b.body = next
			return b, nil
		}
		lines = append(lines, string(line))
		if next == nil {
			break
		}
		rest = next
	}
	return b, nil
}

// Path returns the file this block was loaded from.
func (b *Block) Path() string {
	return b.path
}

// SyncCommit returns the recorded sync commit, if any.
func (b *Block) SyncCommit() (string, bool) {
	return b.value(KeySyncCommit)
}

// Drifted returns the recorded drift status, if any.
func (b *Block) Drifted() (Drifted, bool) {
	v, ok := b.value(KeyDrifted)
	return Drifted(v), ok
}

// SetSyncCommit records hash as the sync baseline. An existing key is
// replaced in place; otherwise the key is inserted directly after the
// opening delimiter. Setting the current value again is a no-op.
func (b *Block) SetSyncCommit(hash string) {
	line := KeySyncCommit + ": " + hash
	if i := b.keyIndex(KeySyncCommit); i >= 0 {
		if b.lines[i] != line {
			b.lines[i] = line
			b.dirty = true
		}
		return
	}
	b.insert(0, line)
}

// SetDrifted records the drift status. False removes the key entirely (on
// disk, absence means not drifted). True and the file-not-found sentinel are
// written directly after the sync-commit line, which must exist.
func (b *Block) SetDrifted(status Drifted) error {
	if status == DriftedFalse {
		if i := b.keyIndex(KeyDrifted); i >= 0 {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			b.dirty = true
		}
		return nil
	}

	sync := b.keyIndex(KeySyncCommit)
	if sync < 0 {
		return &PreconditionError{Path: b.path}
	}

	line := KeyDrifted + ": " + string(status)
	if i := b.keyIndex(KeyDrifted); i >= 0 {
		if b.lines[i] != line {
			b.lines[i] = line
			b.dirty = true
		}
		return nil
	}
	b.insert(sync+1, line)
	return nil
}

// Dirty reports whether the block holds unwritten changes.
func (b *Block) Dirty() bool {
	return b.dirty
}

// Write persists the block back to its file via a temp file and atomic
// rename, so an interrupted run never leaves a half-written header. A clean
// block is a no-op.
func (b *Block) Write() error {
	if !b.dirty {
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	for _, line := range b.lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteString(delimiter + "\n")
	buf.Write(b.body)

	if err := b.validate(); err != nil {
		return err
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(b.path); err == nil {
		mode = info.Mode()
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".localedrift-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		return err
	}

	b.dirty = false
	return nil
}

// validate refuses to write a block that no longer parses as a YAML mapping
func (b *Block) validate() error {
	doc := strings.Join(b.lines, "\n")
	m := make(map[string]any)
	if err := yaml.Unmarshal([]byte(doc), &m); err != nil {
		return fmt.Errorf("refusing to write %s: header block is not valid YAML: %w", b.path, err)
	}
	return nil
}

// StripSuffix drops the optional +N suffix from a sync commit. The suffix
// counts localization-side commits and means nothing to git.
func StripSuffix(hash string) string {
	if i := strings.IndexByte(hash, '+'); i >= 0 {
		return hash[:i]
	}
	return hash
}

func (b *Block) insert(at int, line string) {
	b.lines = append(b.lines, "")
	copy(b.lines[at+1:], b.lines[at:])
	b.lines[at] = line
	b.dirty = true
}

// keyIndex finds the top-level line holding key, or -1
func (b *Block) keyIndex(key string) int {
	for i, line := range b.lines {
		if strings.HasPrefix(line, key+":") {
			return i
		}
	}
	return -1
}

func (b *Block) value(key string) (string, bool) {
	i := b.keyIndex(key)
	if i < 0 {
		return "", false
	}
	v := strings.TrimSpace(b.lines[i][len(key)+1:])
	v = strings.Trim(v, `"'`)
	if v == "" {
		return "", false
	}
	return v, true
}
