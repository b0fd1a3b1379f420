package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/stats"
)

// Ledger entry kinds.
const (
	KindReport  = "report"
	KindVerdict = "verdict"
)

// Entry is one line of the ledger.
type Entry struct {
	Timestamp time.Time        `json:"timestamp"`
	Path      string           `json:"path"`
	Kind      string           `json:"kind"`
	Report    *ir.Report       `json:"report,omitempty"`
	Verdict   *ir.TrickVerdict `json:"verdict,omitempty"`
}

// Ledger is an append-only JSONL file of reports and verdicts.
type Ledger struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := repairTail(path); err != nil {
		return nil, fmt.Errorf("repair ledger %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &Ledger{f: f, path: path}, nil
}

// repairTail makes the ledger end on a line boundary. A final line that
// parses is terminated; a torn one is cut off so the next append starts a
// fresh line.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	size := fi.Size()
	if size == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}

	start, err := lastLineStart(f, size)
	if err != nil {
		return err
	}
	tail := make([]byte, size-start)
	if _, err := f.ReadAt(tail, start); err != nil {
		return err
	}
	var e Entry
	if trimmed := bytes.TrimSpace(tail); len(trimmed) > 0 && json.Unmarshal(trimmed, &e) == nil {
		_, err = f.WriteAt([]byte{'\n'}, size)
		return err
	}
	return f.Truncate(start)
}

// lastLineStart returns the offset just after the last newline before size,
// or 0 when there is none.
func lastLineStart(f *os.File, size int64) (int64, error) {
	const chunk = 4096
	buf := make([]byte, chunk)
	for end := size; end > 0; {
		off := end - chunk
		if off < 0 {
			off = 0
		}
		n, err := f.ReadAt(buf[:end-off], off)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			return off + int64(i) + 1, nil
		}
		end = off
	}
	return 0, nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) AppendReport(rep ir.Report) error {
	return l.append(Entry{Timestamp: time.Now().UTC(), Path: rep.Target, Kind: KindReport, Report: &rep})
}

func (l *Ledger) AppendVerdict(v ir.TrickVerdict) error {
	return l.append(Entry{Timestamp: time.Now().UTC(), Path: v.Path, Kind: KindVerdict, Verdict: &v})
}

// append writes the entry with a single write call so concurrent appends
// never interleave.
func (l *Ledger) append(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return errors.New("ledger closed")
	}
	_, err = l.f.Write(data)
	return err
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// Replay calls fn for every entry in the ledger at path. A missing file is
// an empty ledger. A final line without a newline that does not parse is a
// torn write and is skipped; any other bad line is an error.
func Replay(path string, fn func(Entry) error) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	n := 0
	for lineNo := 1; ; lineNo++ {
		line, rerr := r.ReadBytes('\n')
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return n, rerr
		}
		torn := errors.Is(rerr, io.EOF)
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var e Entry
			if err := json.Unmarshal(trimmed, &e); err != nil {
				if torn {
					return n, nil
				}
				return n, fmt.Errorf("%s:%d: %w", path, lineNo, err)
			}
			if err := fn(e); err != nil {
				return n, err
			}
			n++
		}
		if torn {
			return n, nil
		}
	}
}

// ReplayStats rebuilds statistics from the verdicts in the ledger.
func ReplayStats(path string, st *stats.Stats) (int, error) {
	return Replay(path, func(e Entry) error {
		if e.Kind == KindVerdict && e.Verdict != nil {
			st.Record(*e.Verdict)
		}
		return nil
	})
}
