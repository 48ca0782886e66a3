package api

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// resolvePath maps a client-supplied path onto root. Relative paths are
// joined to root and absolute paths must already lie under it. Symlinks in
// the existing part of the path are followed before the check, so a link
// inside root cannot point the request outside it. An empty path stays empty.
func resolvePath(root, field, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}

	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(absRoot, target)
	}
	target = filepath.Clean(target)
	if !within(absRoot, target) {
		return "", fmt.Errorf("%w: %s %q is outside the allowed root", ErrBadRequest, field, p)
	}

	realRoot, err := realPath(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	realTarget, err := realPath(target)
	if err != nil {
		return "", fmt.Errorf("%w: %s %q: %v", ErrBadRequest, field, p, err)
	}
	if !within(realRoot, realTarget) {
		return "", fmt.Errorf("%w: %s %q resolves outside the allowed root", ErrBadRequest, field, p)
	}
	return target, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// realPath evaluates symlinks in the longest existing prefix of p and
// appends the part that does not exist yet.
func realPath(p string) (string, error) {
	rest := ""
	for {
		if _, err := os.Lstat(p); err == nil {
			resolved, err := filepath.EvalSymlinks(p)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rest), nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return filepath.Join(p, rest), nil
		}
		rest = filepath.Join(filepath.Base(p), rest)
		p = parent
	}
}
