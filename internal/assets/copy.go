package assets

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wolfeidau/sitepack/internal/config"
)

// copyAll runs the copy rules against the output directory and returns the
// written paths relative to it.
func copyAll(rules []config.CopyRule, outDir string) ([]string, error) {
	var written []string

	for _, rule := range rules {
		files, err := copyRule(rule, outDir)
		if err != nil {
			return nil, err
		}
		written = append(written, files...)
	}

	return written, nil
}

func copyRule(rule config.CopyRule, outDir string) ([]string, error) {
	info, err := os.Stat(rule.From)
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", rule.From, err)
	}

	target := filepath.Join(outDir, filepath.FromSlash(rule.To))

	if !info.IsDir() {
		// "dir/" style targets keep the source file name
		if rule.To == "" || strings.HasSuffix(rule.To, "/") {
			target = filepath.Join(target, filepath.Base(rule.From))
		}
		if err := copyFile(rule.From, target, info.Mode()); err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(outDir, target)
		if err != nil {
			return nil, err
		}
		return []string{filepath.ToSlash(rel)}, nil
	}

	var written []string
	err = filepath.WalkDir(rule.From, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(rule.From, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(target, rel)

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if err := copyFile(path, dest, fi.Mode()); err != nil {
			return err
		}

		outRel, err := filepath.Rel(outDir, dest)
		if err != nil {
			return err
		}
		written = append(written, filepath.ToSlash(outRel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy %s: %w", rule.From, err)
	}

	return written, nil
}

func copyFile(src, dest string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm()|0o200)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
