package gateway

import (
	"context"
	"encoding/json"

	"github.com/wonny/ibdash/pkg/redis"
)

// ScanInstrument is an instrument class the scanner supports
type ScanInstrument struct {
	DisplayName string   `json:"display_name"`
	Type        string   `json:"type"`
	Filters     []string `json:"filters"`
}

// ScanFilter is a filter the scanner accepts
type ScanFilter struct {
	Group       string `json:"group"`
	DisplayName string `json:"display_name"`
	Code        string `json:"code"`
	Type        string `json:"type"`
}

// ScanType is a sort order ("scan code")
type ScanType struct {
	DisplayName string   `json:"display_name"`
	Code        string   `json:"code"`
	Instruments []string `json:"instruments"`
}

// LocationGroup lists scan locations per instrument class
type LocationGroup struct {
	DisplayName string          `json:"display_name"`
	Type        string          `json:"type"`
	Locations   json.RawMessage `json:"locations"`
}

// ScannerParams is /iserver/scanner/params
type ScannerParams struct {
	InstrumentList []ScanInstrument `json:"instrument_list"`
	FilterList     []ScanFilter     `json:"filter_list"`
	ScanTypeList   []ScanType       `json:"scan_type_list"`
	LocationTree   []LocationGroup  `json:"location_tree"`
}

// ScanSort is a sort available for an instrument class
type ScanSort struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// ScannerEntry groups everything usable with one instrument class
type ScannerEntry struct {
	DisplayName string          `json:"display_name"`
	Filters     []string        `json:"filters"`
	Sorts       []ScanSort      `json:"sorts"`
	Locations   json.RawMessage `json:"locations,omitempty"`
}

// ScannerCatalog is the scanner parameters indexed for a form
type ScannerCatalog struct {
	Instruments map[string]*ScannerEntry `json:"scanner_map"`
	Filters     map[string]ScanFilter    `json:"filter_map"`
}

// Catalog indexes the parameters by instrument type and filter group
func (p *ScannerParams) Catalog() ScannerCatalog {
	cat := ScannerCatalog{
		Instruments: make(map[string]*ScannerEntry, len(p.InstrumentList)),
		Filters:     make(map[string]ScanFilter, len(p.FilterList)),
	}
	for _, in := range p.InstrumentList {
		cat.Instruments[in.Type] = &ScannerEntry{
			DisplayName: in.DisplayName,
			Filters:     in.Filters,
			Sorts:       []ScanSort{},
		}
	}
	for _, f := range p.FilterList {
		cat.Filters[f.Group] = f
	}
	for _, st := range p.ScanTypeList {
		for _, inst := range st.Instruments {
			if e, ok := cat.Instruments[inst]; ok {
				e.Sorts = append(e.Sorts, ScanSort{Name: st.DisplayName, Code: st.Code})
			}
		}
	}
	for _, loc := range p.LocationTree {
		if e, ok := cat.Instruments[loc.Type]; ok {
			e.Locations = loc.Locations
		}
	}
	return cat
}

// ScanFilterValue is one filter of a scan request
type ScanFilterValue struct {
	Code  string      `json:"code"`
	Value interface{} `json:"value"`
}

// ScanRequest is the body of /iserver/scanner/run
type ScanRequest struct {
	Instrument string            `json:"instrument"`
	Location   string            `json:"location"`
	Type       string            `json:"type"`
	Filter     []ScanFilterValue `json:"filter"`
}

// ScanContract is one scanner hit
type ScanContract struct {
	ServerID    string `json:"server_id"`
	Symbol      string `json:"symbol"`
	ConID       ConID  `json:"conid"`
	CompanyName string `json:"company_name"`
	ListingExch string `json:"listing_exchange"`
	SecType     string `json:"sec_type"`
	ColumnValue string `json:"column_name,omitempty"`
}

// ScanResult is the response of /iserver/scanner/run
type ScanResult struct {
	Contracts []ScanContract `json:"contracts"`
}

// ScannerParams returns the scanner catalogue, cached for a day since it
// is large and rarely changes
func (c *Client) ScannerParams(ctx context.Context) (*ScannerParams, error) {
	var params ScannerParams
	err := c.cache.GetOrSet(ctx, redis.ScannerParamsKey(), &params, redis.TTLDaily, func() (interface{}, error) {
		var raw json.RawMessage
		if err := c.get(ctx, "scanner params", "/iserver/scanner/params", nil, &raw); err != nil {
			return nil, err
		}
		if msg := decodeAPIError(raw); msg != "" {
			return nil, &APIError{Op: "scanner params", Message: msg}
		}
		var fresh ScannerParams
		if err := json.Unmarshal(raw, &fresh); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return &params, nil
}

// RunScanner runs a market scan
func (c *Client) RunScanner(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	var result ScanResult
	if err := c.post(ctx, "scanner run", "/iserver/scanner/run", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
