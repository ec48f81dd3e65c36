package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"cloak/internal/domain"
)

// HTTPClient talks to a relay server over JSON/HTTP. It implements both the
// Directory (pre-key bundles) and Transport (envelope delivery) contracts.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

// NewHTTPClient returns an HTTPClient for the relay at base.
func NewHTTPClient(base string, client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{Base: base, HTTP: client}
}

// RegisterPreKeyBundle publishes our bundle.
func (c *HTTPClient) RegisterPreKeyBundle(ctx context.Context, bundle domain.PreKeyBundle) error {
	return c.post(ctx, "/register", bundle, nil)
}

// FetchPreKeyBundle retrieves a peer's bundle. A 404 maps to
// domain.ErrNoPreKeyBundle so callers can distinguish "nothing published"
// from transient transport failure.
func (c *HTTPClient) FetchPreKeyBundle(ctx context.Context, remote domain.RemoteIdentity) (domain.PreKeyBundle, error) {
	var out domain.PreKeyBundle
	err := c.getJSON(ctx, "/prekey/"+url.PathEscape(remote.String()), &out)
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	return out, nil
}

// SendEnvelope posts an envelope for its recipient.
func (c *HTTPClient) SendEnvelope(ctx context.Context, env domain.EncryptedEnvelope) error {
	return c.post(ctx, "/msg/"+url.PathEscape(env.To.String()), env, nil)
}

// FetchEnvelopes retrieves queued envelopes for me.
func (c *HTTPClient) FetchEnvelopes(ctx context.Context, me domain.RemoteIdentity, limit int) ([]domain.EncryptedEnvelope, error) {
	path := "/msg/" + url.PathEscape(me.String())
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var envs []domain.EncryptedEnvelope
	if err := c.getJSON(ctx, path, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// AckEnvelopes acknowledges the first count queued envelopes for me.
func (c *HTTPClient) AckEnvelopes(ctx context.Context, me domain.RemoteIdentity, count int) error {
	return c.post(ctx, "/msg/"+url.PathEscape(me.String())+"/ack", struct {
		Count int `json:"count"`
	}{Count: count}, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(in); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("relay post %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNoPreKeyBundle
	}
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("relay get %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Compile-time assertions.
var (
	_ domain.Directory = (*HTTPClient)(nil)
	_ domain.Transport = (*HTTPClient)(nil)
)
