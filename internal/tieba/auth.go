package tieba

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// successMarker is the string the platform sets in the error field of a
// successful mobile-endpoint response.
const successMarker = "success"

// moIndexResponse is the envelope of the mobile index endpoint, shared by
// credential validation and forum enumeration.
type moIndexResponse struct {
	No    int64       `json:"no"`
	Error string      `json:"error"`
	Data  moIndexData `json:"data"`
}

type moIndexData struct {
	UserID    flexID  `json:"user_id"`
	LikeForum []Forum `json:"like_forum"`
}

// flexID accepts the user identifier as either a JSON string or number; the
// platform is not consistent about which it sends.
type flexID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// Authenticate validates the credential against the mobile index endpoint.
// A successful response must carry both the numeric success code and the
// success marker; anything else is treated as an invalid or expired
// credential. The returned UserInfo gets a fresh device identifier.
func (c *client) Authenticate(ctx context.Context, credential string) (*UserInfo, error) {
	return execute(ctx, c, opAuthenticate, func(ctx context.Context) (*UserInfo, error) {
		body, err := c.do(ctx, opAuthenticate, apiRequest{
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
			return nil, NewAPIError(opAuthenticate, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
		}

		if resp.No != 0 || resp.Error != successMarker {
			return nil, &APIError{
				Op:        opAuthenticate,
				ServerMsg: resp.Error,
				Err:       ErrInvalidCredential,
			}
		}

		return &UserInfo{
			Code:       resp.No,
			Credential: credential,
			UserID:     string(resp.Data.UserID),
			Valid:      true,
			DeviceID:   NewDeviceID(),
		}, nil
	})
}
