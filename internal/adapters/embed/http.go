package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	match "shelfmatch/internal/core/match"
	perr "shelfmatch/internal/platform/errors"
	"shelfmatch/internal/platform/logger"
)

const (
	httpTimeoutDefault   = 10 * time.Second
	httpMaxRetryDefault  = 3
	httpRetryBaseDefault = 250 * time.Millisecond
)

// Options configures the HTTP source
type Options struct {
	BaseURL string
	Timeout time.Duration

	// Retry config for transient failures
	MaxRetries int
	RetryBase  time.Duration
}

// HTTP batches token lookups to an external embedding service. Transport
// errors and 5xx responses retry with exponential backoff; exhaustion
// surfaces as Unavailable so the semantic strategy can degrade
type HTTP struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	sleep func(time.Duration)
}

// NewHTTP creates the client with sane defaults
func NewHTTP(o Options) *HTTP {
	if o.Timeout <= 0 {
		o.Timeout = httpTimeoutDefault
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = httpMaxRetryDefault
	}
	if o.RetryBase <= 0 {
		o.RetryBase = httpRetryBaseDefault
	}
	return &HTTP{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("embed"),
		sleep: time.Sleep,
	}
}

// Name implements Source
func (h *HTTP) Name() string { return "http" }

type embedRequest struct {
	Tokens []string `json:"tokens"`
}

type embedResponse struct {
	Vectors map[string][]float32 `json:"vectors"`
}

// Embed implements Source via POST {base}/embed
func (h *HTTP) Embed(ctx context.Context, tokens []string) (map[string]match.Vector, error) {
	if len(tokens) == 0 {
		return map[string]match.Vector{}, nil
	}

	body, err := json.Marshal(embedRequest{Tokens: tokens})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "embed: marshal request")
	}

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.opts.BaseURL+"/embed", bytes.NewReader(body))
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "embed: new request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.http.Do(req)
		if err != nil {
			if attempts >= h.opts.MaxRetries {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "embed: service unreachable")
			}
			back := h.backoff(attempts)
			h.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempts).Msg("embed transport error retrying")
			h.sleep(back)
			attempts++
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var er embedResponse
			err := json.NewDecoder(resp.Body).Decode(&er)
			drainClose(resp.Body)
			if err != nil {
				return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "embed: decode response")
			}
			out := make(map[string]match.Vector, len(er.Vectors))
			for tok, v := range er.Vectors {
				out[tok] = match.Vector(v)
			}
			return out, nil

		case resp.StatusCode >= 500:
			drainClose(resp.Body)
			if attempts >= h.opts.MaxRetries {
				return nil, perr.Newf(perr.ErrorCodeUnavailable, "embed: service error %d", resp.StatusCode)
			}
			back := h.backoff(attempts)
			h.log.Warn().Int("status", resp.StatusCode).Dur("retry_in", back).Int("attempt", attempts).Msg("embed transient error retrying")
			h.sleep(back)
			attempts++
			continue

		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, perr.Newf(perr.ErrorCodeUnknown, "embed: unexpected status %d body %s", resp.StatusCode, string(tail))
		}
	}
}

func (h *HTTP) backoff(attempt int) time.Duration {
	ms := int64(h.opts.RetryBase / time.Millisecond)
	ms = ms << uint(attempt)
	if max := int64(10 * time.Second / time.Millisecond); ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}

func drainClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
