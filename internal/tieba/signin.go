package tieba

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"

	"github.com/tiebatools/autosign/internal/observability"
)

// SignIn posts the daily check-in for one forum. The response is validated
// only for presence; semantic success, already-signed, and error sub-codes
// are left to the caller to interpret from the raw payload.
func (c *client) SignIn(ctx context.Context, credential, forumName, tbs string, index int) (json.RawMessage, error) {
	form := url.Values{}
	form.Set("ie", "utf-8")
	form.Set("kw", forumName)
	form.Set("tbs", tbs)
	encoded := form.Encode()

	c.logger.Debug("signing in",
		observability.String("forum", forumName),
		observability.Int("index", index),
	)

	return execute(ctx, c, opSignIn, func(ctx context.Context) (json.RawMessage, error) {
		body, err := c.do(ctx, opSignIn, apiRequest{
			method:     "POST",
			url:        c.endpoints.Sign,
			userAgent:  desktopUserAgent,
			credential: credential,
			form:       encoded,
		})
		if err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil, NewAPIError(opSignIn, ErrEmptyResponse)
		}

		return json.RawMessage(body), nil
	})
}
