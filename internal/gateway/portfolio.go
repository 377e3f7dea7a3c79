package gateway

import (
	"context"
	"fmt"
)

// Accounts lists the accounts visible to the session
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.get(ctx, "accounts", "/portfolio/accounts", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Summary returns the account summary
func (c *Client) Summary(ctx context.Context) (Summary, error) {
	acct, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	var summary Summary
	if err := c.get(ctx, "summary", fmt.Sprintf("/portfolio/%s/summary", acct), nil, &summary); err != nil {
		return nil, err
	}
	return summary, nil
}

// Positions returns one page of positions. An empty body means no positions.
func (c *Client) Positions(ctx context.Context, page int) ([]Position, error) {
	acct, err := c.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	positions := []Position{}
	if err := c.get(ctx, "positions", fmt.Sprintf("/portfolio/%s/positions/%d", acct, page), nil, &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// AllPositions pages through positions until an empty page
func (c *Client) AllPositions(ctx context.Context) ([]Position, error) {
	var all []Position
	for page := 0; ; page++ {
		positions, err := c.Positions(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(positions) == 0 {
			return all, nil
		}
		all = append(all, positions...)
		// the gateway pages by 100
		if len(positions) < 100 {
			return all, nil
		}
	}
}
