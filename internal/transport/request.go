package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/codeinventory/pkg/errors"
)

// maxErrorBody bounds how much of an error response is kept in an APIError.
const maxErrorBody = 4 << 10

// DecodeResponse decodes a JSON response into the target structure and closes
// the body. Non-2xx responses become an APIError.
func DecodeResponse(resp *http.Response, host string, target any) error {
	defer resp.Body.Close() //nolint:errcheck

	if err := CheckResponse(resp, host); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.WrapParse("json", resp.Request.URL.Path, err)
	}
	return nil
}

// CheckResponse returns an APIError for non-2xx responses.
func CheckResponse(resp *http.Response, host string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.URL.Path
	}
	return &errors.APIError{
		Host:       host,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		Endpoint:   endpoint,
	}
}

// NextPage returns the rel="next" URL from a Link header, or "".
func NextPage(resp *http.Response) string {
	for _, link := range strings.Split(resp.Header.Get("Link"), ",") {
		parts := strings.Split(link, ";")
		if len(parts) < 2 {
			continue
		}
		target := strings.Trim(strings.TrimSpace(parts[0]), "<>")
		for _, param := range parts[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target
			}
		}
	}
	return ""
}
