package terminal

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/ochairo/vtscan/internal/domain/entities"
)

// Renderer prints scan reports to standard output
type Renderer struct {
	out  io.Writer
	side io.Writer // engines table in verbose mode, so out stays one JSON document

	color bool
}

// NewRenderer creates a renderer writing to out. side receives the engines
// table when the report is rendered as JSON; nil means out.
func NewRenderer(out, side io.Writer) *Renderer {
	if side == nil {
		side = out
	}
	return &Renderer{out: out, side: side, color: true}
}

// SetColor toggles highlighting in the engines table. Colors also require the
// package-wide switch that DisableColor turns off.
func (r *Renderer) SetColor(enabled bool) {
	r.color = enabled
}

// IsEmpty reports whether report carries no information at all
func IsEmpty(report *entities.ScanReport) bool {
	if report == nil {
		return true
	}
	return len(report.Raw) == 0 &&
		report.ResponseCode == entities.ResponseNotFound &&
		report.VerboseMsg == "" &&
		report.Positives == 0 &&
		report.Total == 0 &&
		len(report.Scans) == 0
}

// Render writes either the full JSON report (verbose) or the one-line summary,
// followed by the engines table when requested
func (r *Renderer) Render(report *entities.ScanReport, verbose, engines bool) error {
	if IsEmpty(report) {
		return entities.ErrEmptyResponse
	}

	var err error
	if verbose {
		err = r.Verbose(report)
	} else {
		err = r.Summary(report)
	}
	if err != nil {
		return err
	}

	if engines && !report.ResponseCode.IsQueued() {
		w := r.out
		if verbose {
			w = r.side
		}
		writeEngines(w, report, verbose, r.color)
	}
	return nil
}

// Verbose pretty-prints the whole payload with sorted keys and a 2-space indent
func (r *Renderer) Verbose(report *entities.ScanReport) error {
	payload := report.Raw
	if len(payload) == 0 {
		payload = typedPayload(report)
	}

	enc := json.NewEncoder(r.out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Summary prints the status message of a queued report, or the number of
// positive detections otherwise
func (r *Renderer) Summary(report *entities.ScanReport) error {
	if report.ResponseCode.IsQueued() {
		_, err := fmt.Fprintln(r.out, report.VerboseMsg)
		return err
	}
	_, err := fmt.Fprintf(r.out, "Number of positive detections: %d\n", report.Positives)
	return err
}

// Engines prints a per-engine table. Only engines that detected something are
// listed unless all is set.
func (r *Renderer) Engines(report *entities.ScanReport, all bool) {
	writeEngines(r.out, report, all, r.color)
}

func writeEngines(w io.Writer, report *entities.ScanReport, all, colored bool) {
	scans := report.Scans
	if !all {
		scans = report.Detections()
	}

	names := make([]string, 0, len(scans))
	for name := range scans {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Engine", "Detected", "Result", "Version", "Update"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")

	for _, name := range names {
		res := scans[name]
		result := res.Result
		if result == "" {
			result = "-"
		}
		table.Append([]string{name, detectedMark(res.Detected, colored), result, res.Version, res.Update})
	}
	table.Render()

	fmt.Fprintf(w, "Detection ratio: %d/%d\n", report.Positives, report.Total)
}

func detectedMark(detected, colored bool) string {
	if detected && colored {
		return errorStyle.Sprint("yes")
	}
	if detected {
		return "yes"
	}
	return "no"
}

// typedPayload rebuilds a service-shaped object from the mapped fields. It is
// used when the raw payload was not kept.
func typedPayload(report *entities.ScanReport) map[string]any {
	scans := make(map[string]any, len(report.Scans))
	for name, s := range report.Scans {
		scans[name] = map[string]any{
			"detected": s.Detected,
			"version":  s.Version,
			"result":   s.Result,
			"update":   s.Update,
		}
	}

	out := map[string]any{
		"response_code": int(report.ResponseCode),
		"verbose_msg":   report.VerboseMsg,
		"positives":     report.Positives,
		"total":         report.Total,
	}
	for key, value := range map[string]string{
		"resource":  report.Resource,
		"scan_id":   report.ScanID,
		"sha256":    report.SHA256,
		"permalink": report.Permalink,
		"scan_date": report.ScanDate,
	} {
		if value != "" {
			out[key] = value
		}
	}
	if len(scans) > 0 {
		out["scans"] = scans
	}
	return out
}
