// Package extract unpacks downloaded archives into an app's version
// directory.
package extract

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Extract unpacks archivePath into destDir.
//
// When extractDir is set only that subtree of the archive is written, with
// its contents placed directly in the destination. When extractTo is set
// the destination becomes destDir/extractTo. Entries that would land outside
// the destination are rejected and nothing further is written.
func Extract(archivePath, destDir, extractDir, extractTo string) error {
	format, err := Detect(archivePath)
	if err != nil {
		return &ExtractError{Archive: archivePath, Err: err}
	}
	return ExtractFormat(archivePath, format, destDir, extractDir, extractTo)
}

// ExtractFormat is Extract with a known format.
func ExtractFormat(archivePath string, format Format, destDir, extractDir, extractTo string) error {
	fail := func(entryName string, err error) error {
		return &ExtractError{Archive: archivePath, Entry: entryName, Err: err}
	}

	if !format.IsArchive() {
		return fail("", fmt.Errorf("%w: %s", ErrUnsupported, format))
	}

	target := filepath.Clean(destDir)
	if extractTo != "" {
		var err error
		target, err = safeJoin(target, extractTo)
		if err != nil {
			return fail(extractTo, err)
		}
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return fail("", fmt.Errorf("create dest dir: %w", err))
	}
	realTarget, err := filepath.EvalSymlinks(target)
	if err != nil {
		return fail("", fmt.Errorf("resolve dest dir: %w", err))
	}

	walk, closer, err := open(archivePath, format)
	if err != nil {
		return fail("", err)
	}
	defer closer.Close()

	prefix := normalizeName(extractDir)
	matched := prefix == ""

	err = walk(func(e entry) error {
		name := normalizeName(e.name)
		if name == "" {
			return nil
		}
		// Reject hostile entries even when they fall outside extract_dir.
		if _, err := safeJoin(target, name); err != nil {
			return fail(e.name, err)
		}

		rel := name
		if prefix != "" {
			if name != prefix && !strings.HasPrefix(name, prefix+"/") {
				return nil
			}
			matched = true
			rel = strings.TrimPrefix(strings.TrimPrefix(name, prefix), "/")
			if rel == "" {
				return nil
			}
		}

		dest, err := safeJoin(target, rel)
		if err != nil {
			return fail(e.name, err)
		}
		if err := writeEntry(realTarget, dest, e); err != nil {
			return fail(e.name, err)
		}
		return nil
	})
	if err != nil {
		var ee *ExtractError
		if errors.As(err, &ee) {
			return err
		}
		return fail("", err)
	}

	if !matched {
		return fail(extractDir, ErrExtractDirNotFound)
	}
	return nil
}

func open(archivePath string, format Format) (walker, io.Closer, error) {
	switch format {
	case FormatZip:
		return walkZip(archivePath)
	case FormatSevenZip:
		return walkSevenZip(archivePath)
	case FormatRar:
		return walkRar(archivePath)
	default:
		return walkStream(archivePath, format, plainName(archivePath))
	}
}

// writeEntry writes e at dest. realRoot is the destination with symlinks
// resolved; every write is checked against it after resolving the links
// earlier entries may have created.
func writeEntry(realRoot, dest string, e entry) error {
	if e.isDir {
		if _, err := resolveWithin(realRoot, dest); err != nil {
			return err
		}
		if err := os.MkdirAll(dest, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dest, err)
		}
		return nil
	}

	parent, err := resolveWithin(realRoot, filepath.Dir(dest))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", dest, err)
	}
	// Never write through a link left by an earlier entry.
	if fi, err := os.Lstat(dest); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("replace symlink %s: %w", dest, err)
		}
	}

	if e.link != "" {
		resolved := e.link
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(parent, filepath.FromSlash(e.link))
		}
		if !within(realRoot, resolved) {
			return fmt.Errorf("%w: symlink target %s", ErrPathTraversal, e.link)
		}
		os.Remove(dest)
		if err := os.Symlink(e.link, dest); err != nil {
			return fmt.Errorf("create symlink %s: %w", dest, err)
		}
		if got, err := filepath.EvalSymlinks(dest); err == nil && !within(realRoot, got) {
			os.Remove(dest)
			return fmt.Errorf("%w: symlink target %s", ErrPathTraversal, e.link)
		}
		return nil
	}

	perm := e.mode.Perm()
	if perm == 0 {
		perm = 0644
	}

	rc, err := e.open()
	if err != nil {
		return fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	outFile, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create file %s: %w", dest, err)
	}
	if _, err := io.Copy(outFile, rc); err != nil {
		outFile.Close()
		return fmt.Errorf("write file %s: %w", dest, err)
	}
	return outFile.Close()
}

// normalizeName converts an archive member name to a clean slash path
// without leading "./" or trailing "/". Names that climb out of the root are
// kept intact so safeJoin can reject them.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == "/" {
		return ""
	}
	return strings.TrimPrefix(cleaned, "./")
}

// safeJoin joins rel onto root and fails if the result escapes root.
func safeJoin(root, rel string) (string, error) {
	rel = strings.ReplaceAll(rel, `\`, "/")
	if path.IsAbs(rel) || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !within(root, target) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	return target, nil
}

// resolveWithin resolves p through symlinks and fails when the result is
// outside realRoot. Components that do not exist yet are taken literally;
// MkdirAll creates them as plain directories.
func resolveWithin(realRoot, p string) (string, error) {
	dir, missing := filepath.Clean(p), ""
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			resolved = filepath.Join(resolved, missing)
			if !within(realRoot, resolved) {
				return "", fmt.Errorf("%w: %s resolves to %s", ErrPathTraversal, p, resolved)
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		up := filepath.Dir(dir)
		if up == dir {
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		missing = filepath.Join(filepath.Base(dir), missing)
		dir = up
	}
}

// within reports whether target is root or below it.
func within(root, target string) bool {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	return target == root || strings.HasPrefix(target, root+string(os.PathSeparator))
}

// plainName strips a compression suffix: tool.exe.gz becomes tool.exe.
func plainName(archivePath string) string {
	base := filepath.Base(archivePath)
	lower := strings.ToLower(base)
	for _, ext := range []string{".gz", ".xz", ".bz2", ".zst"} {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}
