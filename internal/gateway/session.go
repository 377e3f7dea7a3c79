package gateway

import "context"

// Tickle keeps the brokerage session alive and reports its state
func (c *Client) Tickle(ctx context.Context) (*TickleResponse, error) {
	var resp TickleResponse
	if err := c.post(ctx, "tickle", "/tickle", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AuthStatus reports whether the brokerage session is authenticated
func (c *Client) AuthStatus(ctx context.Context) (*AuthStatus, error) {
	var status AuthStatus
	if err := c.get(ctx, "auth status", "/iserver/auth/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
