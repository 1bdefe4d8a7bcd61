package terminal

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/vtscan/internal/domain/entities"
	"github.com/ochairo/vtscan/internal/domain/interfaces"
)

func TestMain(m *testing.M) {
	DisableColor()
	os.Exit(m.Run())
}

func foundReport() *entities.ScanReport {
	return &entities.ScanReport{
		ResponseCode: entities.ResponseFound,
		VerboseMsg:   "Scan finished, information embedded",
		Positives:    3,
		Total:        4,
		Scans: map[string]entities.EngineResult{
			"Zeta":  {Detected: true, Result: "Trojan.Z", Version: "1", Update: "20240101"},
			"Alpha": {Detected: true, Result: "Trojan.A", Version: "2", Update: "20240102"},
			"Mid":   {Detected: true, Result: "Trojan.M", Version: "3", Update: "20240103"},
			"Clean": {Detected: false, Version: "4", Update: "20240104"},
		},
		Raw: map[string]any{
			"response_code": json.Number("1"),
			"verbose_msg":   "Scan finished, information embedded",
			"positives":     json.Number("3"),
			"total":         json.Number("4"),
			"scans": map[string]any{
				"Zeta": map[string]any{"detected": true, "result": "Trojan.Z"},
			},
		},
	}
}

func TestRenderer_Summary(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, NewRenderer(&out, nil).Render(foundReport(), false, false))
	assert.Equal(t, "Number of positive detections: 3\n", out.String())
}

func TestRenderer_SummaryQueued(t *testing.T) {
	var out bytes.Buffer
	report := &entities.ScanReport{ResponseCode: entities.ResponseQueued, VerboseMsg: "Your resource is queued for analysis"}

	require.NoError(t, NewRenderer(&out, nil).Render(report, false, true))
	assert.Equal(t, "Your resource is queued for analysis\n", out.String())
}

func TestRenderer_VerboseEnginesGoToSideWriter(t *testing.T) {
	var out, side bytes.Buffer
	require.NoError(t, NewRenderer(&out, &side).Render(foundReport(), true, true))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded), "stdout must stay a single JSON document:\n%s", out.String())
	assert.Contains(t, side.String(), "Detection ratio: 3/")
	assert.NotContains(t, out.String(), "Detection ratio")
}

func TestRenderer_VerboseIsStableJSON(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, NewRenderer(&first, nil).Render(foundReport(), true, false))
	require.NoError(t, NewRenderer(&second, nil).Render(foundReport(), true, false))

	assert.Equal(t, first.String(), second.String())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(first.Bytes(), &decoded))
	for _, key := range []string{"response_code", "verbose_msg", "positives", "total", "scans"} {
		assert.Contains(t, decoded, key)
	}

	// keys are sorted and indented by two spaces
	text := first.String()
	assert.True(t, strings.Index(text, `"positives"`) < strings.Index(text, `"response_code"`))
	assert.Contains(t, text, "\n  \"positives\": 3")
}

func TestRenderer_VerboseWithoutRaw(t *testing.T) {
	report := foundReport()
	report.Raw = nil

	var out bytes.Buffer
	require.NoError(t, NewRenderer(&out, nil).Verbose(report))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.EqualValues(t, 3, decoded["positives"])
	assert.Contains(t, decoded, "scans")
}

func TestRenderer_Empty(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, nil)

	assert.ErrorIs(t, r.Render(nil, false, false), entities.ErrEmptyResponse)
	assert.ErrorIs(t, r.Render(&entities.ScanReport{}, true, false), entities.ErrEmptyResponse)
	assert.Empty(t, out.String())
}

func TestRenderer_Engines(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out, nil).Engines(foundReport(), false)
	text := out.String()

	assert.NotContains(t, text, "Clean")
	alpha, mid, zeta := strings.Index(text, "Alpha"), strings.Index(text, "Mid"), strings.Index(text, "Zeta")
	assert.True(t, alpha >= 0 && alpha < mid && mid < zeta, "engines should be sorted by name:\n%s", text)
	assert.Contains(t, text, "Detection ratio: 3/4")

	out.Reset()
	NewRenderer(&out, nil).Engines(foundReport(), true)
	assert.Contains(t, out.String(), "Clean")
}

func TestLogger_TagsAndFields(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger(&out, false)

	logger.Info("Looking up report", interfaces.F("sha256", "abc"))
	logger.Warn("Giving up")
	logger.Error("Rate limit exceeded")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[INFO] Looking up report sha256=abc", lines[0])
	assert.Equal(t, "[WARN] Giving up", lines[1])
	assert.Equal(t, "[ERROR] Rate limit exceeded", lines[2])

	out.Reset()
	NewLogger(&out, true).Debug("shown", interfaces.F("n", 1))
	assert.Equal(t, "[DEBUG] shown n=1\n", out.String())
}

func TestSpinner_StartStop(t *testing.T) {
	var out bytes.Buffer
	s := NewSpinner(&out, 2*time.Millisecond)

	s.Stop() // not started
	s.Start("Waiting for analysis")
	s.Start("ignored while running")
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop()

	text := out.String()
	assert.Contains(t, text, "| Waiting for analysis")
	assert.NotContains(t, text, "ignored while running")
	assert.True(t, strings.HasSuffix(text, "\r\033[K"), "spinner should clear its line on stop")
}

var _ interfaces.ProgressIndicator = (*Spinner)(nil)
var _ interfaces.Logger = (*Logger)(nil)
