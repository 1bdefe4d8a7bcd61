package gateways

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/ochairo/vtscan/internal/domain/entities"
)

const (
	// DefaultAPIURL is the VirusTotal public API v2 base URL
	DefaultAPIURL = "https://www.virustotal.com/vtapi/v2"

	// DefaultUserAgent advertises gzip support, as the public API asks clients to
	DefaultUserAgent = "vtscan/1.0 (gzip)"

	// maxResponseSize caps decoded response bodies (full reports are a few hundred KB)
	maxResponseSize int64 = 10 * 1024 * 1024
)

// VirusTotalConfig configures the VirusTotal gateway
type VirusTotalConfig struct {
	APIURL    string
	APIKey    string
	UserAgent string
	Timeout   time.Duration
}

// virusTotalGateway implements ThreatIntelGateway against the VirusTotal v2 file API
type virusTotalGateway struct {
	apiURL     string
	apiKey     string
	userAgent  string
	maxBody    int64
	httpClient *http.Client
}

// NewVirusTotalGateway creates a new VirusTotal gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewVirusTotalGateway(cfg VirusTotalConfig) *virusTotalGateway {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &virusTotalGateway{
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		maxBody:   maxResponseSize,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GetReport retrieves the file report for digest with a single GET request
func (g *virusTotalGateway) GetReport(ctx context.Context, digest entities.Digest) (*entities.ScanReport, error) {
	params := url.Values{}
	params.Set("apikey", g.apiKey)
	params.Set("resource", digest.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"/file/report?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	body, raw, err := g.readPayload(resp)
	if err != nil {
		return nil, err
	}

	var vtResp VTFileReport
	if err := json.Unmarshal(body, &vtResp); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrMalformedResponse, err)
	}

	return vtResp.toReport(raw), nil
}

// SubmitFile uploads file as multipart/form-data. The body is streamed, so the
// file is never held in memory.
func (g *virusTotalGateway) SubmitFile(ctx context.Context, file *entities.FileReference) (*entities.SubmissionReceipt, error) {
	//nolint:gosec // G304: File path is user-provided for submission
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeSubmission(mw, g.apiKey, file, f))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/file/scan", pr)
	if err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	body, _, err := g.readPayload(resp)
	if err != nil {
		return nil, err
	}

	var vtResp VTScanResponse
	if err := json.Unmarshal(body, &vtResp); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrMalformedResponse, err)
	}

	return &entities.SubmissionReceipt{
		ResponseCode: entities.ResponseCode(vtResp.ResponseCode),
		VerboseMsg:   vtResp.VerboseMsg,
		ScanID:       vtResp.ScanID,
		Resource:     vtResp.Resource,
		SHA256:       vtResp.SHA256,
		Permalink:    vtResp.Permalink,
	}, nil
}

func (g *virusTotalGateway) setHeaders(req *http.Request) {
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("User-Agent", g.userAgent)
}

// readPayload checks the HTTP status and returns the body both as bytes and as
// a generic JSON object. The public API answers 204 with no body when the
// request quota is exhausted.
func (g *virusTotalGateway) readPayload(resp *http.Response) ([]byte, map[string]any, error) {
	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil, entities.ErrRateLimited
	case resp.StatusCode == http.StatusForbidden:
		return nil, nil, entities.ErrForbidden
	case resp.StatusCode != http.StatusOK:
		return nil, nil, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", entities.ErrMalformedResponse, err)
	}
	//nolint:errcheck // Defer close on decompressor
	defer reader.Close()

	body, err := io.ReadAll(io.LimitReader(reader, g.maxBody+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > g.maxBody {
		return nil, nil, fmt.Errorf("response exceeds %d bytes", g.maxBody)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", entities.ErrMalformedResponse, err)
	}
	if len(raw) == 0 {
		return nil, nil, entities.ErrEmptyResponse
	}

	return body, raw, nil
}

// decodeBody undoes the Content-Encoding the request advertised. Setting
// Accept-Encoding by hand disables the transport's transparent decoding.
// Servers disagree on deflate: some send zlib-wrapped data, others raw flate.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return io.NopCloser(resp.Body), nil
	case "gzip", "x-gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		br := bufio.NewReader(resp.Body)
		if header, err := br.Peek(2); err == nil && isZlibHeader(header) {
			return zlib.NewReader(br)
		}
		return flate.NewReader(br), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// isZlibHeader checks the RFC 1950 CMF/FLG pair
func isZlibHeader(h []byte) bool {
	return h[0]&0x0f == 8 && (uint16(h[0])<<8|uint16(h[1]))%31 == 0
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeSubmission(mw *multipart.Writer, apiKey string, file *entities.FileReference, content io.Reader) error {
	if err := mw.WriteField("apikey", apiKey); err != nil {
		return err
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(file.Path); err == nil {
		contentType = mt.String()
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}

	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("failed to stream file: %w", err)
	}

	return mw.Close()
}

// VirusTotal API v2 response types

// VTFileReport is the payload of the file/report endpoint.
type VTFileReport struct {
	ResponseCode int                       `json:"response_code"`
	VerboseMsg   string                    `json:"verbose_msg"`
	Resource     string                    `json:"resource,omitempty"`
	ScanID       string                    `json:"scan_id,omitempty"`
	SHA256       string                    `json:"sha256,omitempty"`
	Permalink    string                    `json:"permalink,omitempty"`
	ScanDate     string                    `json:"scan_date,omitempty"`
	Positives    int                       `json:"positives,omitempty"`
	Total        int                       `json:"total,omitempty"`
	Scans        map[string]VTEngineResult `json:"scans,omitempty"`
}

// VTEngineResult is one engine's entry in the scans object.
type VTEngineResult struct {
	Detected bool   `json:"detected"`
	Version  string `json:"version"`
	Result   string `json:"result"`
	Update   string `json:"update"`
}

// VTScanResponse is the payload of the file/scan endpoint.
type VTScanResponse struct {
	ResponseCode int    `json:"response_code"`
	VerboseMsg   string `json:"verbose_msg"`
	ScanID       string `json:"scan_id,omitempty"`
	Resource     string `json:"resource,omitempty"`
	SHA256       string `json:"sha256,omitempty"`
	Permalink    string `json:"permalink,omitempty"`
}

func (r VTFileReport) toReport(raw map[string]any) *entities.ScanReport {
	scans := make(map[string]entities.EngineResult, len(r.Scans))
	for name, s := range r.Scans {
		scans[name] = entities.EngineResult{
			Detected: s.Detected,
			Version:  s.Version,
			Result:   s.Result,
			Update:   s.Update,
		}
	}

	return &entities.ScanReport{
		ResponseCode: entities.ResponseCode(r.ResponseCode),
		VerboseMsg:   r.VerboseMsg,
		Resource:     r.Resource,
		ScanID:       r.ScanID,
		SHA256:       r.SHA256,
		Permalink:    r.Permalink,
		ScanDate:     r.ScanDate,
		Positives:    r.Positives,
		Total:        r.Total,
		Scans:        scans,
		Raw:          raw,
	}
}
