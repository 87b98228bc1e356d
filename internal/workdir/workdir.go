// Package workdir resolves the directory that holds the .tasksync store,
// supporting redirection via .tasksync-root files.
package workdir

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	dataDir  = ".tasksync"
	rootFile = ".tasksync-root"
)

// ResolveBaseDir finds the store for dir by walking up from it. At each
// level a .tasksync-root file wins and names the base directory to use
// (relative paths are taken from the file's directory); otherwise a
// .tasksync directory marks the base. If nothing is found, dir is returned
// unchanged so init can create the store there.
func ResolveBaseDir(dir string) string {
	for cur := dir; ; {
		if target, ok := readRootFile(cur); ok {
			return target
		}
		if info, err := os.Stat(filepath.Join(cur, dataDir)); err == nil && info.IsDir() {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

func readRootFile(dir string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(dir, rootFile))
	if err != nil {
		return "", false
	}
	resolved := strings.TrimSpace(string(content))
	if resolved == "" {
		return "", false
	}
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(dir, resolved)
	}
	return filepath.Clean(resolved), true
}
