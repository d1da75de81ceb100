package tieba

import (
	"context"
	"encoding/json"
	"fmt"
)

// ListForums enumerates the forums the user follows. An absent forum list is
// "user follows nothing", not an error; a missing success marker fails with
// the server-supplied message when one is present.
func (c *client) ListForums(ctx context.Context, credential string) ([]Forum, error) {
	return execute(ctx, c, opListForums, func(ctx context.Context) ([]Forum, error) {
		body, err := c.do(ctx, opListForums, apiRequest{
			method:     "GET",
			url:        c.endpoints.MoIndex,
			userAgent:  mobileUserAgent,
			credential: credential,
		})
		if err != nil {
			return nil, err
		}

		var resp moIndexResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, NewAPIError(opListForums, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}

		if resp.Error != successMarker {
			return nil, &APIError{
				Op:        opListForums,
				ServerMsg: resp.Error,
				Err:       ErrUpstreamRejected,
			}
		}

		if resp.Data.LikeForum == nil {
			return []Forum{}, nil
		}
		return resp.Data.LikeForum, nil
	})
}
