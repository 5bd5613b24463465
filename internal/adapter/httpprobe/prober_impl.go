package httpprobe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/user/validator-service/internal/entity"
)

// errTooManyRedirects marks a chain that exceeded the configured hop bound.
var errTooManyRedirects = errors.New("too many redirects")

// maxDrainBytes caps how much of a response body is read before closing.
const maxDrainBytes = 1 << 18

// HTTPProber validates URLs with plain HTTP GET probes. One probe per
// call, redirects followed up to a bounded hop count, every hop recorded.
type HTTPProber struct {
	transport *http.Transport
	timeout   time.Duration
	maxHops   int
	userAgent string
}

// NewHTTPProber creates a prober with a shared transport for connection reuse.
func NewHTTPProber(timeout time.Duration, maxRedirects int, userAgent string) *HTTPProber {
	return &HTTPProber{
		transport: &http.Transport{
			MaxIdleConns:        32,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		timeout:   timeout,
		maxHops:   maxRedirects,
		userAgent: userAgent,
	}
}

// Probe issues a single GET and classifies the terminal result. The hop
// chain is collected in the redirect callback, so the client must be
// per-call; the transport is shared.
func (p *HTTPProber) Probe(ctx context.Context, rawURL string) (entity.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return entity.Outcome{}, err
	}

	outcome := entity.Outcome{
		URL:         rawURL,
		FinalURL:    rawURL,
		ValidatedAt: time.Now().UTC(),
	}

	var hops []entity.RedirectHop
	client := &http.Client{
		Transport: p.transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= p.maxHops {
				return errTooManyRedirects
			}
			status := 0
			if req.Response != nil {
				status = req.Response.StatusCode
			}
			hops = append(hops, entity.RedirectHop{
				Position:   len(hops) + 1,
				FromURL:    via[len(via)-1].URL.String(),
				ToURL:      req.URL.String(),
				StatusCode: status,
			})
			return nil
		},
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		outcome.Status = entity.UrlStatusInvalid
		outcome.ErrorMessage = fmt.Sprintf("malformed url: %v", err)
		return outcome, nil
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := client.Do(req)
	outcome.Hops = hops
	if err != nil {
		outcome.Status = entity.UrlStatusInvalid
		outcome.ErrorMessage = classifyTransportError(err)
		return outcome, nil
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		resp.Body.Close()
	}()

	code := resp.StatusCode
	outcome.HTTPStatus = &code
	outcome.FinalURL = resp.Request.URL.String()

	switch {
	case code >= 200 && code < 300 && len(hops) > 0:
		outcome.Status = entity.UrlStatusRedirected
	case code >= 200 && code < 300:
		outcome.Status = entity.UrlStatusValid
	default:
		outcome.Status = entity.UrlStatusInvalid
		outcome.ErrorMessage = fmt.Sprintf("unexpected status %d", code)
	}
	return outcome, nil
}

// classifyTransportError collapses transport failures into the documented
// taxonomy: DNS, TLS, timeout, connection refused, too many redirects.
func classifyTransportError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("dns resolution failed: %v", dnsErr)
	}

	if errors.Is(err, errTooManyRedirects) {
		return "too many redirects"
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuthErr x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthErr) ||
		errors.As(err, &hostErr) || errors.As(err, &recordErr) {
		return fmt.Sprintf("tls failure: %v", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("timeout: %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timeout: %v", err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Sprintf("connection refused: %v", err)
	}

	return fmt.Sprintf("connection error: %v", err)
}
