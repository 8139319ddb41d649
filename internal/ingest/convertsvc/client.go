package convertsvc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/openannounce/announce-backend/pkg/config"
	pkgerrors "github.com/openannounce/announce-backend/pkg/errors"
	"github.com/openannounce/announce-backend/pkg/logger"
)

const (
	convertPath = "/v1/convert"

	maxResponseBytes = 64 << 20
)

// probeImage is a 2x2 black PNG used for the one-shot WebP capability probe.
var probeImage = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x02,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x72, 0xb6, 0x0d, 0x24, 0x00, 0x00, 0x00,
	0x12, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x60, 0x60, 0x60, 0xf8,
	0x0f, 0x04, 0x00, 0x00, 0x00, 0xff, 0xff, 0x03, 0x00, 0x0e, 0xa0, 0x02,
	0xfe, 0x13, 0x8b, 0x4c, 0xf0, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e,
	0x44, 0xae, 0x42, 0x60, 0x82,
}

// Client calls the remote image conversion service. The service owns the
// codecs the pipeline cannot carry in-process (HEIC decode, WebP encode);
// this client owns only the call contract.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logg    *logger.Logger

	probeOnce sync.Once
	webpOK    bool
}

// New constructs a convert-service client with a circuit breaker sized from config.
func New(cfg config.ConvertConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("convert service base url required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	c := &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logg:    logg,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "convert-service",
		Timeout: cfg.BreakerCooloff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFail
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "convert-service breaker state change")
		},
	})
	return c, nil
}

// Convert re-encodes blob to targetMIME at the given quality (0..1).
func (c *Client) Convert(ctx context.Context, blob []byte, sourceMIME, targetMIME string, quality float64) ([]byte, error) {
	if len(blob) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConversion, "empty input blob")
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.doConvert(ctx, blob, sourceMIME, targetMIME, quality)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert service unavailable")
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) doConvert(ctx context.Context, blob []byte, sourceMIME, targetMIME string, quality float64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertPath, bytes.NewReader(blob))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building convert request")
	}
	req.Header.Set("Content-Type", sourceMIME)
	req.Header.Set("Accept", targetMIME)

	q := req.URL.Query()
	q.Set("quality", strconv.FormatFloat(quality, 'f', 2, 64))
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling convert service")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", cerr.Error()), "closing convert response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, pkgerrors.New(pkgerrors.CodeConversion,
			fmt.Sprintf("convert service returned %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading convert response")
	}
	if len(out) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConversion, "convert service returned empty blob")
	}
	return out, nil
}

// SupportsWebP probes the service's WebP encode target once and caches the
// answer for the process lifetime.
func (c *Client) SupportsWebP(ctx context.Context) bool {
	c.probeOnce.Do(func() {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		out, err := c.Convert(probeCtx, probeImage, "image/png", "image/webp", 0.8)
		if err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()),
				"webp probe failed, falling back to jpeg encoding")
			return
		}
		c.webpOK = len(out) > 0
	})
	return c.webpOK
}
