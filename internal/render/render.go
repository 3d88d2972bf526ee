// Package render folds plugin output into a template document.
//
// Substitution is a single linear pass: plugins run in the supplied order
// and each returned block replaces every literal ${name} occurrence in the
// document as it stands at that point. Unresolved placeholders are left
// verbatim. Block text is never re-scanned for placeholders by a later
// expansion step; it is only visible to later plugins' replacements.
package render

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/lwir/internal/emit"
	"github.com/roach88/lwir/internal/ir"
	"github.com/roach88/lwir/internal/logger"
)

// Options configures a render.
type Options struct {
	// Echo, when set, receives the finished document. It mirrors the
	// console print of the assembled output and is never required.
	Echo func(doc string)

	// Logger receives debug events; nil disables logging.
	Logger *zap.SugaredLogger
}

// Placeholder returns the template spelling of a block name.
func Placeholder(name string) string {
	return "${" + name + "}"
}

// Render runs plugins in order over r and substitutes their blocks into
// template. On any plugin error nothing is returned.
func Render(template string, r *ir.IR, plugins []emit.Plugin, opts Options) (string, error) {
	log := logger.OrNop(opts.Logger)

	doc := template
	for _, plugin := range plugins {
		blocks, err := plugin.Run(r)
		if err != nil {
			return "", errors.Wrapf(err, "plugin %s", plugin.Name())
		}

		// Blocks of one plugin are applied in name order so a plugin
		// returning several blocks renders deterministically.
		names := make([]string, 0, len(blocks))
		for name := range blocks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			placeholder := Placeholder(name)
			hits := strings.Count(doc, placeholder)
			doc = strings.ReplaceAll(doc, placeholder, blocks[name])
			log.Debugw("substituted block",
				"plugin", plugin.Name(),
				"block", name,
				"bytes", len(blocks[name]),
				"occurrences", hits)
		}
	}

	if opts.Echo != nil {
		opts.Echo(doc)
	}
	return doc, nil
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Unresolved lists the distinct placeholder names still present in doc, in
// order of first appearance. Leftover placeholders are legal; this is a
// diagnostic aid.
func Unresolved(doc string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderPattern.FindAllStringSubmatch(doc, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}

// ReadTemplate reads a whole template document.
func ReadTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "reading template %s", path)
		if errors.Is(err, os.ErrNotExist) {
			err = errors.WithHint(err, "template paths in a job file are relative to the job file")
		}
		return "", err
	}
	return string(data), nil
}

// WriteOutput replaces the file at path with doc. The document goes to a
// temporary file in the same directory first and is renamed into place, so
// a failed write never leaves partial output.
func WriteOutput(path, doc string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WithHint(errors.Wrapf(err, "writing output %s", path),
			"check that the output directory exists and is writable")
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "writing output %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "writing output %s", path)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "writing output %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "writing output %s", path)
	}
	return nil
}

// File reads the template once, renders it in memory and writes the result
// once. The rendered document is also returned for inspection.
func File(templatePath, outputPath string, r *ir.IR, plugins []emit.Plugin, opts Options) (string, error) {
	template, err := ReadTemplate(templatePath)
	if err != nil {
		return "", err
	}

	doc, err := Render(template, r, plugins, opts)
	if err != nil {
		return "", err
	}

	if err := WriteOutput(outputPath, doc); err != nil {
		return "", err
	}
	logger.OrNop(opts.Logger).Debugw("wrote output", "path", outputPath, "bytes", len(doc))
	return doc, nil
}
