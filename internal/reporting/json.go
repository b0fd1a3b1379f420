package reporting

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

// WriteJSON writes rep to <outDir>/<report id>.json.
func WriteJSON(outDir string, rep *ir.Report) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, rep.ID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := EncodeJSON(f, rep); err != nil {
		return "", err
	}
	return path, nil
}

// EncodeJSON writes v as indented JSON.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
