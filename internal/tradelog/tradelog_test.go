package tradelog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/pkg/config"
	"github.com/wonny/ibdash/pkg/database"
	"github.com/wonny/ibdash/pkg/logger"
)

func sampleRecord() Record {
	return Record{
		Timestamp:  time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC),
		Symbol:     "EURUSD",
		Instrument: order.Instrument{Symbol: "EUR", SecType: "CASH", Currency: "USD"},
		Intent: order.Intent{
			Side: order.SideBuy, Size: 1, Kind: order.KindLimit, LimitPrice: order.Float(1.2), TIF: order.TIFDay,
			Bracket: &order.BracketSpec{TakeProfit: order.Float(1.21), StopLoss: order.Float(1.195)},
		},
		Legs: []Leg{
			{Role: order.RoleEntry, OrderID: "1001", Status: "PreSubmitted", Remaining: 100000},
			{Role: order.RoleTakeProfit, OrderID: "1002", Status: "PreSubmitted"},
			{Role: order.RoleStopLoss, OrderID: "1003", Status: "PreSubmitted"},
		},
	}
}

func TestRecord_Status(t *testing.T) {
	rec := sampleRecord()
	assert.Equal(t, "PreSubmitted", rec.Status())

	rec.Legs[0].Status = ""
	assert.Equal(t, "Unacknowledged", rec.Status())

	rec.Error = "gateway down"
	assert.Equal(t, "Error", rec.Status())
}

func TestLogSink_Append(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(logger.NewWithWriter(&buf, "info", "json"))

	require.NoError(t, sink.Append(context.Background(), sampleRecord()))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Trade logged", entry["message"])
	assert.Equal(t, "EURUSD", entry["symbol"])
	assert.Equal(t, "BUY", entry["direction"])
	assert.Equal(t, true, entry["bracket"])
	assert.Equal(t, "PreSubmitted", entry["status"])
	assert.Len(t, entry["legs"], 3)
}

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, Record) error {
	f.calls++
	return errors.New("disk full")
}

func TestMulti_AppendsToAll(t *testing.T) {
	first := &failingSink{}
	second := &failingSink{}

	err := Multi{first, second}.Append(context.Background(), sampleRecord())
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestPostgresSink_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()

	db, err := database.Open(ctx, url, config.DatabaseConfig{MaxConns: 2})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	sink := NewPostgresSink(db.Pool)
	rec := sampleRecord()
	rec.Timestamp = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, sink.Append(ctx, rec))

	recent, err := sink.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "EURUSD", recent[0].Symbol)
	assert.Equal(t, 1.21, *recent[0].Intent.Bracket.TakeProfit)
}
