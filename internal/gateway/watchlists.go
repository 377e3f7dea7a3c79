package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/ibdash/internal/order"
)

// Watchlists lists the user's watchlists
func (c *Client) Watchlists(ctx context.Context) ([]WatchlistSummary, error) {
	var resp struct {
		Data struct {
			UserLists []WatchlistSummary `json:"user_lists"`
		} `json:"data"`
	}
	if err := c.get(ctx, "watchlists", "/iserver/watchlists", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data.UserLists == nil {
		return []WatchlistSummary{}, nil
	}
	return resp.Data.UserLists, nil
}

// Watchlist returns one watchlist with its instruments
func (c *Client) Watchlist(ctx context.Context, id string) (*Watchlist, error) {
	var wl Watchlist
	if err := c.get(ctx, "watchlist", "/iserver/watchlist", url.Values{"id": {id}}, &wl); err != nil {
		return nil, err
	}
	return &wl, nil
}

// DeleteWatchlist removes a watchlist
func (c *Client) DeleteWatchlist(ctx context.Context, id string) error {
	return c.delete(ctx, "delete watchlist", "/iserver/watchlist", url.Values{"id": {id}}, nil)
}

// CreateWatchlist creates a watchlist from symbols, resolving each to a
// stock contract id. Blank symbols are skipped.
func (c *Client) CreateWatchlist(ctx context.Context, name string, symbols []string) (string, error) {
	type row struct {
		C int64 `json:"C"`
	}

	rows := make([]row, 0, len(symbols))
	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		inst, err := c.ResolveConID(ctx, order.Instrument{Symbol: strings.ToUpper(s), SecType: order.SecTypeStock})
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", s, err)
		}
		rows = append(rows, row{C: inst.ConID})
	}

	id := strconv.FormatInt(time.Now().Unix(), 10)
	body := map[string]interface{}{
		"id":   id,
		"name": name,
		"rows": rows,
	}
	if err := c.post(ctx, "create watchlist", "/iserver/watchlist", body, nil); err != nil {
		return "", err
	}
	return id, nil
}
