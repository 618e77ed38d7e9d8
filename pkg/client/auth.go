package client

import (
	"context"
	"net/http"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// StoreCode registers an access code with the backend.
func (c *Client) StoreCode(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, c.endpoint(nil, "store-code"), core.CodeRequest{Code: code}, nil)
}

// VerifyCode asks the backend whether code unlocks the console.
// A rejected code is not an error: the backend's verdict and message are
// returned with Valid=false. Transport failures and unexpected responses are
// returned as errors.
func (c *Client) VerifyCode(ctx context.Context, code string) (*core.VerifyCodeResponse, error) {
	resp, err := c.send(ctx, http.MethodPost, c.endpoint(nil, "verify-code"), core.CodeRequest{Code: code})
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		var out core.VerifyCodeResponse
		if err := decodeJSON(resp.Body, &out); err != nil {
			return nil, err
		}
		return &out, nil
	case resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusBadRequest:
		apiErr := decodeAPIError(resp).(*APIError)
		return &core.VerifyCodeResponse{Valid: false, Message: apiErr.Message}, nil
	default:
		return nil, decodeAPIError(resp)
	}
}
