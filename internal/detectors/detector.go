// Package detectors holds the scan modules. Each detector owns one concern
// of the pattern library and turns a single artifact into a DetectorResult.
package detectors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
)

// Input is one artifact to scan. Rules is the library snapshot shared by
// every detector in the same scan.
type Input struct {
	Path       string
	Content    string
	ContextTag ir.ContextTag
	// Baseline is the previous version of Content, when known. Diff-aware
	// detectors are not applicable without it.
	Baseline *string
	Rules    *patterns.Library
}

// Detector scans one artifact. Implementations must be safe for concurrent
// use and must not keep state between calls.
type Detector interface {
	ID() string
	Scan(ctx context.Context, in Input) ir.DetectorResult
}

// Factory builds a detector instance.
type Factory func() (Detector, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a detector available by id. Called from init.
func Register(id string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[id]; dup {
		panic(fmt.Sprintf("detectors: duplicate registration %q", id))
	}
	factories[id] = f
}

// IDs lists registered detector ids, sorted.
func IDs() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for id := range factories {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// New builds the detector registered under id.
func New(id string) (Detector, error) {
	mu.RLock()
	f, ok := factories[id]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown detector %q", id)
	}
	d, err := f()
	if err != nil {
		return nil, &ir.DetectorError{Detector: id, Err: err}
	}
	return d, nil
}
