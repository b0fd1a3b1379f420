package scan

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/source"
)

var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"vendor": true, "node_modules": true,
	"__pycache__": true, ".venv": true, "venv": true, ".tox": true,
}

// target is one expanded input. err is set when the input could not be
// expanded and becomes a failed report.
type target struct {
	path string
	err  error
}

// expand turns the given paths into the files a directory scan visits.
// Explicit files are kept regardless of extension; directories contribute
// known source files only.
func expand(paths []string) []target {
	var out []target
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			out = append(out, target{path: p, err: err})
			continue
		}
		if !st.IsDir() {
			out = append(out, target{path: p})
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				out = append(out, target{path: path, err: err})
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != p && skipDirs[d.Name()] {
					return fs.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && source.Known(path) {
				out = append(out, target{path: path})
			}
			return nil
		})
		if err != nil {
			out = append(out, target{path: p, err: err})
		}
	}
	return out
}

// ScanDirectory scans every file under paths and returns one report per
// file, in expansion order. A file that cannot be read or scanned yields a
// report with Failed set. The error is non-nil only when ctx ends.
func (o *Orchestrator) ScanDirectory(ctx context.Context, paths []string, tag ir.ContextTag) ([]ir.Report, error) {
	targets := expand(paths)
	reports := make([]ir.Report, len(targets))

	var g errgroup.Group
	g.SetLimit(o.opts.FileWorkers)
	for i, t := range targets {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			reports[i] = o.scanTarget(ctx, t, tag)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.log.Info("directory scan complete", "files", len(reports))
	return reports, nil
}

func (o *Orchestrator) scanTarget(ctx context.Context, t target, tag ir.ContextTag) ir.Report {
	if t.err != nil {
		return o.failedReport(t.path, t.err)
	}
	content, err := o.readSource(t.path)
	if err != nil {
		return o.failedReport(t.path, err)
	}
	rep, err := o.ScanFile(ctx, content, t.path, tag)
	if err != nil {
		return o.failedReport(t.path, err)
	}
	return rep
}

func (o *Orchestrator) readSource(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if st.Size() > o.opts.MaxFileBytes {
		return "", fmt.Errorf("%s: %d bytes exceeds limit of %d", path, st.Size(), o.opts.MaxFileBytes)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if bytes.IndexByte(b, 0) >= 0 || !utf8.Valid(b) {
		return "", fmt.Errorf("%s: not a text file", path)
	}
	return string(b), nil
}

func (o *Orchestrator) failedReport(path string, err error) ir.Report {
	o.log.Warn("file scan failed", "path", path, "err", err)
	return ir.Report{
		ID:                uuid.NewString(),
		Target:            path,
		Findings:          []ir.Finding{},
		SeverityBreakdown: map[ir.Severity]int{},
		RulesVersion:      o.rules.Load().Version(),
		CreatedAt:         time.Now().UTC(),
		Failed:            true,
		Error:             err.Error(),
	}
}
