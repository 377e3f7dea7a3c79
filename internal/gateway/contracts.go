package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/pkg/redis"
)

var majorCurrencies = []string{"USD", "EUR", "GBP", "JPY", "AUD", "NZD", "CAD", "CHF"}

// InstrumentFor classifies a bare symbol. A six-letter symbol containing a
// major currency code is a currency pair on IDEALPRO (base/quote split);
// everything else is a USD stock routed through SMART.
func InstrumentFor(symbol string) order.Instrument {
	s := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(symbol, ".", "")))
	if len(s) == 6 {
		for _, ccy := range majorCurrencies {
			if strings.Contains(s, ccy) {
				return order.Instrument{
					Symbol:   s[:3],
					SecType:  order.SecTypeCash,
					Currency: s[3:],
					Exchange: "IDEALPRO",
				}
			}
		}
	}
	return order.Instrument{
		Symbol:   s,
		SecType:  order.SecTypeStock,
		Currency: "USD",
		Exchange: "SMART",
	}
}

// PairSymbol returns the dashboard symbol of an instrument, e.g. "EURUSD" for EUR.USD
func PairSymbol(inst order.Instrument) string {
	if inst.IsCash() {
		return inst.Symbol + inst.Currency
	}
	return inst.Symbol
}

// SearchContracts looks up contracts by symbol, optionally restricted to secType
func (c *Client) SearchContracts(ctx context.Context, symbol, secType string) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("name", "true")
	if secType != "" {
		q.Set("secType", secType)
	}

	var results []SearchResult
	err := c.cache.GetOrSet(ctx, redis.ContractSearchKey(symbol, secType), &results, redis.TTLMedium, func() (interface{}, error) {
		var fresh []SearchResult
		if err := c.get(ctx, "contract search", "/iserver/secdef/search", q, &fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveConID fills in the instrument's contract id from a symbol search
func (c *Client) ResolveConID(ctx context.Context, inst order.Instrument) (order.Instrument, error) {
	if inst.ConID != 0 {
		return inst, nil
	}

	symbol := inst.Symbol
	if inst.IsCash() {
		symbol = inst.Symbol + "." + inst.Currency
	}

	results, err := c.SearchContracts(ctx, symbol, inst.SecType)
	if err != nil {
		return inst, err
	}
	for _, r := range results {
		if r.ConID != 0 && r.Offers(inst.SecType) {
			inst.ConID = int64(r.ConID)
			return inst, nil
		}
	}
	return inst, fmt.Errorf("%w: no %s contract for %s", ErrNotFound, inst.SecType, symbol)
}

// ContractInfo returns security definitions for the given contract ids
func (c *Client) ContractInfo(ctx context.Context, conids ...int64) ([]ContractInfo, error) {
	body := struct {
		ConIDs []int64 `json:"conids"`
	}{ConIDs: conids}

	var resp struct {
		SecDef []ContractInfo `json:"secdef"`
	}
	if err := c.post(ctx, "contract info", "/trsrv/secdef", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.SecDef) == 0 {
		return nil, fmt.Errorf("%w: contract %v", ErrNotFound, conids)
	}
	return resp.SecDef, nil
}

// History returns price bars for conid over period (e.g. "5d") with bar size bar (e.g. "1d")
func (c *Client) History(ctx context.Context, conid int64, period, bar string) (*History, error) {
	if period == "" {
		period = "5d"
	}
	if bar == "" {
		bar = "1d"
	}

	q := url.Values{}
	q.Set("conid", strconv.FormatInt(conid, 10))
	q.Set("period", period)
	q.Set("bar", bar)

	var h History
	if err := c.get(ctx, "history", "/iserver/marketdata/history", q, &h); err != nil {
		return nil, err
	}
	return &h, nil
}
