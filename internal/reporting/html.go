package reporting

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

var severityOrder = []ir.Severity{ir.SeverityCritical, ir.SeverityHigh, ir.SeverityMedium, ir.SeverityLow}

// WriteHTML writes rep to <outDir>/<report id>.html.
func WriteHTML(outDir string, rep *ir.Report) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, rep.ID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	RenderHTML(f, rep)
	return path, nil
}

// RenderHTML renders a single self-contained page for rep.
func RenderHTML(f io.Writer, rep *ir.Report) {
	// Head + styles
	fmt.Fprintf(f, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(rep.Target))
	fmt.Fprint(f, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace} .bad{color:#b00}</style>")
	fmt.Fprint(f, "</head><body>")

	// Title + summary
	fmt.Fprintf(f, "<h1>realitycheck report – <span class='mono'>%s</span></h1>", html.EscapeString(rep.Target))
	fmt.Fprintf(f, "<p class='dim mono'>%s &nbsp; rules %s &nbsp; %s</p>",
		html.EscapeString(rep.ID), html.EscapeString(rep.RulesVersion), rep.CreatedAt.Format("2006-01-02 15:04:05Z07:00"))
	if rep.Failed {
		fmt.Fprintf(f, "<p class='bad'>Scan failed: %s</p></body></html>", html.EscapeString(rep.Error))
		return
	}
	fmt.Fprintf(f, "<p><b>Reality score</b>: %.3f &nbsp; Findings: %d</p>", rep.Score, len(rep.Findings))
	if rep.ContextTag != ir.ContextProduction {
		fmt.Fprintf(f, "<p class='dim'>Context: %s &nbsp; Suppressed: %d</p>", html.EscapeString(string(rep.ContextTag)), len(rep.Suppressed))
	}

	// Severity breakdown
	fmt.Fprint(f, "<p>")
	for _, s := range severityOrder {
		fmt.Fprintf(f, "%s=%d &nbsp; ", s, rep.SeverityBreakdown[s])
	}
	fmt.Fprint(f, "</p>")

	// Detectors
	fmt.Fprint(f, "<h2>Detectors</h2><table><tr><th>Detector</th><th>Score</th><th>Findings</th><th>Elapsed</th><th>Status</th></tr>")
	for _, r := range rep.Results {
		status := "ok"
		switch {
		case r.NotApplicable:
			status = "n/a"
		case r.Error != "":
			status = r.Error
		}
		fmt.Fprintf(f, "<tr><td>%s</td><td>%.3f</td><td>%d</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(r.DetectorID), r.Score, len(r.Findings), r.Elapsed, html.EscapeString(status))
	}
	fmt.Fprint(f, "</table>")

	// All findings
	if len(rep.Findings) > 0 {
		fmt.Fprint(f, "<h2>Findings</h2><table><tr><th>Severity</th><th>Rule</th><th>Lines</th><th>Message</th><th>Snippet</th></tr>")
		for _, fd := range rep.Findings {
			fmt.Fprintf(f, "<tr><td>%s</td><td>%s</td><td>%d–%d</td><td>%s</td><td class='mono'>%s</td></tr>",
				html.EscapeString(string(fd.Severity)),
				html.EscapeString(fd.RuleID),
				fd.LineStart, fd.LineEnd,
				html.EscapeString(fd.Message),
				html.EscapeString(fd.Snippet),
			)
		}
		fmt.Fprint(f, "</table>")
	} else {
		fmt.Fprint(f, "<h2>Findings</h2><p class='dim'>No findings at or above the configured threshold.</p>")
	}

	fmt.Fprint(f, "</body></html>")
}
