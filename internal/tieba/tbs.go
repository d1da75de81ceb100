package tieba

import (
	"context"
	"encoding/json"
	"fmt"
)

// tbsResponse is the security token endpoint payload.
type tbsResponse struct {
	Tbs     string `json:"tbs"`
	IsLogin int    `json:"is_login"`
}

// FetchTbs retrieves the session-bound security token required by SignIn.
func (c *client) FetchTbs(ctx context.Context, credential string) (string, error) {
	return execute(ctx, c, opFetchTbs, func(ctx context.Context) (string, error) {
		body, err := c.do(ctx, opFetchTbs, apiRequest{
			method:     "GET",
			url:        c.endpoints.Tbs,
			userAgent:  mobileUserAgent,
			credential: credential,
		})
		if err != nil {
			return "", err
		}

		var resp tbsResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", NewAPIError(opFetchTbs, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}

		if resp.Tbs == "" {
			return "", NewAPIError(opFetchTbs, ErrMissingToken)
		}

		return resp.Tbs, nil
	})
}
