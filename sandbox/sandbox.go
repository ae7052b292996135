// Package sandbox restricts filesystem access to an explicit set of
// allowed root directories, resolving symlinks and ".." components before
// any access decision so a caller cannot escape the jail through either.
package sandbox

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/saworbit/orbit-sub003/orbiterrors"
)

var ErrAccessDenied = orbiterrors.New(orbiterrors.AccessDenied, "sandbox: path outside allowed roots")

// Jail restricts access to a fixed set of canonicalized root directories.
type Jail struct {
	roots []string
}

// New canonicalizes each root immediately; a root that cannot be resolved
// (missing, permission denied) is dropped with a warning rather than
// failing construction.
func New(roots []string) *Jail {
	var resolved []string
	for _, r := range roots {
		canon, err := filepath.Abs(r)
		if err == nil {
			canon, err = filepath.EvalSymlinks(canon)
		}
		if err != nil {
			logrus.WithField("root", r).WithError(err).Warn("sandbox: dropping unresolvable root")
			continue
		}
		resolved = append(resolved, canon)
	}
	if len(resolved) == 0 {
		logrus.Warn("sandbox: jail created with no valid allowed roots, all access denied")
	}
	return &Jail{roots: resolved}
}

// Roots returns the jail's canonicalized allowed roots.
func (j *Jail) Roots() []string {
	return append([]string(nil), j.roots...)
}

// SecurePath canonicalizes requested and confirms it falls under one of
// the jail's allowed roots, returning the canonical path on success.
//
// Canonicalization handles both existing and not-yet-created paths: if
// requested doesn't exist (a new destination file, say), SecurePath walks
// up to the nearest existing ancestor, resolves symlinks there, and
// rebuilds the remaining path components on top of that resolved base —
// otherwise a symlinked ancestor could be used to escape the jail even
// though the final component itself doesn't exist yet.
func (j *Jail) SecurePath(requested string) (string, error) {
	if len(j.roots) == 0 {
		return "", ErrAccessDenied
	}

	canonical, err := resolveExisting(requested)
	if err != nil {
		return "", orbiterrors.Wrap(orbiterrors.IO, "sandbox: canonicalize path", err)
	}

	for _, root := range j.roots {
		if isWithin(canonical, root) {
			return canonical, nil
		}
	}
	logrus.WithField("path", canonical).Warn("sandbox: access denied, path outside all allowed roots")
	return "", ErrAccessDenied
}

// resolveExisting canonicalizes path, walking up to the nearest existing
// ancestor and resolving symlinks there if path itself doesn't exist yet,
// then reapplying the non-existent tail components on top.
func resolveExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	var tail []string
	ancestor := abs
	for {
		if resolved, err := filepath.EvalSymlinks(ancestor); err == nil {
			out := resolved
			for i := len(tail) - 1; i >= 0; i-- {
				switch tail[i] {
				case "..":
					out = filepath.Dir(out)
				case ".":
				default:
					out = filepath.Join(out, tail[i])
				}
			}
			return out, nil
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return "", os.ErrNotExist
		}
		tail = append(tail, filepath.Base(ancestor))
		ancestor = parent
	}
}

// isWithin reports whether path is root itself or a descendant of it.
func isWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
