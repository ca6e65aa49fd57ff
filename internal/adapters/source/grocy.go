package source

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "shelfmatch/internal/platform/errors"
	"shelfmatch/internal/platform/logger"
)

const (
	defaultGrocyTimeout   = 15 * time.Second
	defaultGrocyRetries   = 3
	defaultGrocyRetryBase = 250 * time.Millisecond

	// altNamesField is the Grocy userfield carrying learned aliases,
	// one alias per line
	altNamesField = "ProductAltNames"
)

// GrocyOptions configures the Grocy REST client
type GrocyOptions struct {
	// BaseURL is the Grocy instance root, e.g. https://grocy.example.com
	BaseURL string

	// APIKey is sent as the GROCY-API-KEY header on every request
	APIKey string

	// ExternalURL is the browser-facing root for product links. Optional;
	// proxied installs often expose a different host than BaseURL
	ExternalURL string

	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
}

// Grocy talks to a live Grocy instance. Learned aliases persist in the
// ProductAltNames product userfield
type Grocy struct {
	http  *http.Client
	opts  GrocyOptions
	log   logger.Logger
	sleep func(d time.Duration)
}

func init() {
	Register("grocy", func(cfg map[string]string) (Adapter, error) {
		return NewGrocy(GrocyOptions{
			BaseURL:     cfg["base_url"],
			APIKey:      cfg["api_key"],
			ExternalURL: cfg["external_url"],
		})
	})
}

// NewGrocy validates opts and fills defaults
func NewGrocy(opts GrocyOptions) (*Grocy, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, perr.New(perr.ErrorCodeInvalidArgument, "grocy adapter requires base_url")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, perr.New(perr.ErrorCodeInvalidArgument, "grocy adapter requires api_key")
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.ExternalURL = strings.TrimRight(opts.ExternalURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = defaultGrocyTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultGrocyRetries
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultGrocyRetryBase
	}
	return &Grocy{
		http:  &http.Client{Timeout: opts.Timeout},
		opts:  opts,
		log:   *logger.Named("grocy"),
		sleep: time.Sleep,
	}, nil
}

// grocyProduct is the wire shape of /api/objects/products. IDs arrive as
// ints from current Grocy and as numeric strings from older installs, so
// every foreign key is a json.Number
type grocyProduct struct {
	ID             json.Number       `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	ProductGroupID json.Number       `json:"product_group_id"`
	QuIDStock      json.Number       `json:"qu_id_stock"`
	Barcode        string            `json:"barcode"`
	Userfields     map[string]string `json:"userfields"`
}

type grocyRef struct {
	units  map[string]string
	groups map[string]string
}

func (g *Grocy) ListProducts(ctx context.Context) ([]ExternalProduct, error) {
	ref := g.referenceData(ctx)
	var rows []grocyProduct
	if err := g.getJSON(ctx, "/api/objects/products", &rows); err != nil {
		return nil, err
	}
	out := make([]ExternalProduct, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.external(ref))
	}
	g.log.Debug().Int("products", len(out)).Msg("grocy catalog fetched")
	return out, nil
}

func (g *Grocy) Product(ctx context.Context, id string) (*ExternalProduct, error) {
	ref := g.referenceData(ctx)
	var row grocyProduct
	if err := g.getJSON(ctx, "/api/objects/products/"+url.PathEscape(id), &row); err != nil {
		return nil, err
	}
	p := row.external(ref)
	return &p, nil
}

func (g *Grocy) AddAlias(ctx context.Context, productID, alias string) error {
	var row grocyProduct
	if err := g.getJSON(ctx, "/api/objects/products/"+url.PathEscape(productID), &row); err != nil {
		return err
	}
	current := row.Userfields[altNamesField]
	for _, existing := range splitAliases(current) {
		if existing == alias {
			g.log.Debug().Str("product_id", productID).Str("alias", alias).Msg("alias already present")
			return nil
		}
	}
	text := alias
	if current != "" {
		text = current + "\n" + alias
	}
	path := "/api/userfields/products/" + url.PathEscape(productID)
	if err := g.putJSON(ctx, path, map[string]string{altNamesField: text}); err != nil {
		return err
	}
	g.log.Info().Str("product_id", productID).Str("alias", alias).Msg("alias written to grocy")
	return nil
}

func (g *Grocy) Search(ctx context.Context, query string, limit int) ([]ExternalProduct, error) {
	// Grocy has no server-side product search; filter the catalog here
	products, err := g.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []ExternalProduct
	for _, p := range products {
		if limit > 0 && len(out) >= limit {
			break
		}
		if q == "" ||
			strings.Contains(strings.ToLower(p.Name()), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (g *Grocy) ProductURL(productID string) string {
	if g.opts.ExternalURL == "" {
		return ""
	}
	return g.opts.ExternalURL + "/product/" + productID
}

// referenceData resolves Grocy's numeric foreign keys to display names.
// Failures degrade to empty maps; products still list, just without
// category and unit
func (g *Grocy) referenceData(ctx context.Context) grocyRef {
	return grocyRef{
		units:  g.namesByID(ctx, "/api/objects/quantity_units"),
		groups: g.namesByID(ctx, "/api/objects/product_groups"),
	}
}

func (g *Grocy) namesByID(ctx context.Context, path string) map[string]string {
	var rows []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	}
	out := map[string]string{}
	if err := g.getJSON(ctx, path, &rows); err != nil {
		g.log.Warn().Err(err).Str("path", path).Msg("grocy reference data unavailable")
		return out
	}
	for _, r := range rows {
		out[r.ID.String()] = r.Name
	}
	return out
}

func (p grocyProduct) external(ref grocyRef) ExternalProduct {
	aliases := append([]string{p.Name}, splitAliases(p.Userfields[altNamesField])...)
	return ExternalProduct{
		ID:          p.ID.String(),
		Aliases:     aliases,
		Description: p.Description,
		Category:    ref.groups[p.ProductGroupID.String()],
		Unit:        ref.units[p.QuIDStock.String()],
		Barcode:     p.Barcode,
	}
}

// splitAliases parses the newline-separated userfield, dropping blank lines
func splitAliases(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (g *Grocy) getJSON(ctx context.Context, path string, out any) error {
	resp, err := g.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer grocyDrainClose(resp.Body)
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "grocy: decoding %s", path)
	}
	return nil
}

func (g *Grocy) putJSON(ctx context.Context, path string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "grocy: encoding request")
	}
	resp, err := g.do(ctx, http.MethodPut, path, raw)
	if err != nil {
		return err
	}
	grocyDrainClose(resp.Body)
	return nil
}

// do issues one authenticated request, retrying transport failures and 5xx
// responses with exponential backoff
func (g *Grocy) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "grocy: request cancelled")
		}
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, g.opts.BaseURL+path, rd)
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "grocy: building request")
		}
		req.Header.Set("GROCY-API-KEY", g.opts.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := g.http.Do(req)
		if err != nil {
			if attempt < g.opts.MaxRetries {
				g.sleep(g.backoff(attempt))
				continue
			}
			return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "grocy: %s unreachable", g.opts.BaseURL)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusNotFound:
			grocyDrainClose(resp.Body)
			return nil, perr.NotFoundf("grocy: %s %s returned 404", method, path)
		case resp.StatusCode >= 500:
			grocyDrainClose(resp.Body)
			if attempt < g.opts.MaxRetries {
				g.sleep(g.backoff(attempt))
				continue
			}
			return nil, perr.Newf(perr.ErrorCodeUnavailable, "grocy: %s %s returned %d", method, path, resp.StatusCode)
		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
			grocyDrainClose(resp.Body)
			return nil, perr.Newf(perr.ErrorCodeUnknown, "grocy: %s %s returned %d: %s",
				method, path, resp.StatusCode, strings.TrimSpace(string(tail)))
		}
	}
}

func (g *Grocy) backoff(attempt int) time.Duration {
	ms := int64(g.opts.RetryBase / time.Millisecond)
	ms = ms << uint(attempt)
	if max := int64(10 * time.Second / time.Millisecond); ms > max {
		ms = max
	}
	return time.Duration(ms) * time.Millisecond
}

func grocyDrainClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
}
