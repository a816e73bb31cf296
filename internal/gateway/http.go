package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/richardliu001/pix-settlement/internal/apperr"
	"go.uber.org/zap"
)

// HTTPError is a non-2xx answer from a provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

type jsonClient struct {
	provider string
	baseURL  string
	client   *http.Client
	log      *zap.SugaredLogger
}

func newJSONClient(provider, baseURL string, client *http.Client, log *zap.SugaredLogger) jsonClient {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return jsonClient{provider: provider, baseURL: baseURL, client: client, log: log}
}

// do sends in as JSON and decodes the answer into out. Every failure is
// reported as GatewayUnavailable wrapping the cause.
func (c jsonClient) do(ctx context.Context, method, path string, header http.Header, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", c.provider, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.GatewayUnavailable(c.provider+" "+path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.GatewayUnavailable(c.provider+" "+path, err)
	}
	c.log.Debugw("psp response", "provider", c.provider, "path", path, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.GatewayUnavailable(c.provider+" "+path,
			&HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)})
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.GatewayUnavailable(c.provider+" "+path+": malformed response", err)
	}
	return nil
}
