package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/textproto"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-ispider/ispider/internal/config"
	"github.com/go-ispider/ispider/internal/types"
)

// CurlEngine is the "fallback" fetch engine. It shells out to curl with
// permissive TLS verification, for sites whose certificate chain or TLS
// stack the primary net/http engine refuses to negotiate.
type CurlEngine struct {
	binary     string
	timeout    time.Duration
	userAgents []string
	uaIndex    int
	logger     *slog.Logger
}

// NewCurlEngine creates the fallback curl-subprocess engine.
func NewCurlEngine(cfg *config.Config, logger *slog.Logger) *CurlEngine {
	return &CurlEngine{
		binary:     cfg.Fetcher.CurlBinary,
		timeout:    cfg.Engine.Timeout,
		userAgents: cfg.Fetcher.UserAgents,
		logger:     logger.With("component", "curl_engine"),
	}
}

// Fetch shells out to curl -k -i to retrieve the URL, parsing the response
// headers and body from curl's combined output.
func (f *CurlEngine) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	ua := "ispider/" + config.Version
	if len(f.userAgents) > 0 {
		ua = f.userAgents[f.uaIndex%len(f.userAgents)]
		f.uaIndex++
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, f.binary,
		"-k",            // insecure: accept whatever TLS chain the server offers
		"-s", "-i",       // silent, include response headers in output
		"-L",             // follow redirects
		"-A", ua,
		"--max-time", strconv.Itoa(int(f.timeout.Seconds())),
		req.URLString(),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		f.logger.Debug("curl transport failure", "url", req.URLString(), "error", err, "stderr", stderr.String())
		isTimeout := ctx.Err() == context.DeadlineExceeded
		return types.NewResponse(req, types.StatusTransportFailure, nil, nil, 0, isTimeout, elapsed), nil
	}

	statusCode, headers, body, numRedirects := parseCurlOutput(stdout.Bytes())
	if statusCode == 0 {
		return types.NewResponse(req, types.StatusTransportFailure, nil, nil, 0, false, elapsed), nil
	}

	return types.NewResponse(req, statusCode, headers, body, numRedirects, false, elapsed), nil
}

// Close is a no-op: curl subprocesses hold no long-lived resources.
func (f *CurlEngine) Close() error { return nil }

// Name identifies this engine as "fallback".
func (f *CurlEngine) Name() string { return "fallback" }

// parseCurlOutput splits curl -i output into the final status code, the
// final response's headers, and the body, accounting for -L having emitted
// one header block per redirect hop.
func parseCurlOutput(raw []byte) (statusCode int, headers http.Header, body []byte, numRedirects int) {
	remaining := raw
	headers = make(http.Header)

	for {
		idx := bytes.Index(remaining, []byte("\r\n\r\n"))
		sep := 4
		if idx < 0 {
			idx = bytes.Index(remaining, []byte("\n\n"))
			sep = 2
		}
		if idx < 0 {
			return statusCode, headers, remaining, numRedirects
		}

		block := remaining[:idx]
		rest := remaining[idx+sep:]

		reader := textproto.NewReader(bufio.NewReader(bytes.NewReader(block)))
		statusLine, err := reader.ReadLine()
		if err != nil || !strings.HasPrefix(statusLine, "HTTP/") {
			return statusCode, headers, remaining, numRedirects
		}
		fields := strings.Fields(statusLine)
		if len(fields) >= 2 {
			if code, err := strconv.Atoi(fields[1]); err == nil {
				statusCode = code
			}
		}

		mimeHeader, _ := reader.ReadMIMEHeader()
		headers = http.Header(mimeHeader)

		// If the body (rest) itself begins with another "HTTP/" status
		// line, curl -L emitted another hop; loop to find the final block.
		if bytes.HasPrefix(rest, []byte("HTTP/")) {
			numRedirects++
			remaining = rest
			continue
		}

		return statusCode, headers, rest, numRedirects
	}
}
