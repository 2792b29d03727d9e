package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const ignoreHeader = "# tmap local config, logs and caches"

// EnsureIgnored adds the .tmap/ directory to root/.gitignore, creating the
// file if needed. Nothing is written when an active rule already covers it.
func EnsureIgnored(root string) error {
	path := filepath.Join(root, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if ignoresStateDir(data) {
		return nil
	}
	return os.WriteFile(path, appendIgnoreBlock(data), 0o644)
}

// ignoresStateDir reports whether the .gitignore content excludes .tmap/.
// The last rule naming the directory wins, so "!.tmap/" after ".tmap/"
// re-includes it.
func ignoresStateDir(data []byte) bool {
	ignored := false
	for _, line := range strings.Split(string(data), "\n") {
		rule := strings.TrimSpace(line)
		negated := strings.HasPrefix(rule, "!")
		if namesStateDir(strings.TrimPrefix(rule, "!")) {
			ignored = !negated
		}
	}
	return ignored
}

// namesStateDir reports whether one rule matches the whole .tmap directory
// at the project root.
func namesStateDir(rule string) bool {
	rule = strings.TrimPrefix(rule, "/")
	switch rule {
	case DirName, DirName + "/", DirName + "/*", DirName + "/**", DirName + "/**/*":
		return true
	}
	return false
}

// appendIgnoreBlock returns data followed by a blank line, the header
// comment and the .tmap/ rule.
func appendIgnoreBlock(data []byte) []byte {
	var b bytes.Buffer
	b.Write(data)
	if len(data) > 0 {
		if data[len(data)-1] != '\n' {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(ignoreHeader + "\n" + DirName + "/\n")
	return b.Bytes()
}
