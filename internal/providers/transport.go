package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// gatewayTimeout bounds every outbound gateway call. There is no retry
// anywhere in this package; a transport failure surfaces immediately.
const gatewayTimeout = 30 * time.Second

// newGatewayClient builds the per-adapter HTTP client. Each adapter owns its
// client and credential; nothing here mutates shared SDK state.
func newGatewayClient() *http.Client {
	return &http.Client{Timeout: gatewayTimeout}
}

// decodeJSON unmarshals a raw body into v.
func decodeJSON(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

// jsonRequest sends a JSON (or empty) body and decodes a JSON object reply.
// Gateway-level errors (non-2xx) are returned as errors carrying the status
// and the gateway's message so adapters can wrap them.
func jsonRequest(ctx context.Context, client *http.Client, method, rawURL, authorization string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	var out map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode gateway response (HTTP %d): %w", resp.StatusCode, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, fmt.Errorf("gateway returned HTTP %d: %s", resp.StatusCode, gatewayMessage(out))
	}
	return out, nil
}

// formRequest sends a form-encoded POST and returns the raw response body.
func formRequest(ctx context.Context, client *http.Client, rawURL, authorization string, data url.Values) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read gateway response: %w", err)
	}
	return string(raw), resp.StatusCode, nil
}

// gatewayMessage pulls a human-readable message out of a gateway error
// object without exposing the full payload.
func gatewayMessage(body map[string]any) string {
	if body == nil {
		return "no response body"
	}
	if errObj, ok := body["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
	}
	if msg, ok := body["message"].(string); ok && msg != "" {
		return msg
	}
	return "gateway error"
}

// dig walks a JSON-like tree by string keys and integer indexes, returning
// nil when any step is missing. Used to pull references out of snapshots
// without schema-typing third-party payloads.
func dig(v any, path ...any) any {
	for _, step := range path {
		switch key := step.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = m[key]
		case int:
			s, ok := v.([]any)
			if !ok || key < 0 || key >= len(s) {
				return nil
			}
			v = s[key]
		default:
			return nil
		}
	}
	return v
}

// digString is dig for string leaves.
func digString(v any, path ...any) string {
	s, _ := dig(v, path...).(string)
	return s
}
