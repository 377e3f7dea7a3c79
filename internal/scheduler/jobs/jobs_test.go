package jobs

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ibdash/internal/account"
	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/gateway/gatewaytest"
	"github.com/wonny/ibdash/internal/hwm"
	"github.com/wonny/ibdash/pkg/logger"
)

func TestGatewayTickleJob(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()

	job := NewGatewayTickleJob(srv.Client(), "0 * * * * *", logger.Nop())
	assert.Equal(t, "gateway_tickle", job.Name())
	assert.Equal(t, "0 * * * * *", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	srv.Lock()
	assert.Equal(t, 1, srv.Tickles)
	srv.Unlock()
}

type staleSession struct{}

func (staleSession) Tickle(context.Context) (*gateway.TickleResponse, error) {
	return &gateway.TickleResponse{Session: "expired"}, nil
}

func TestGatewayTickleJob_NotAuthenticated(t *testing.T) {
	job := NewGatewayTickleJob(staleSession{}, "@every 1m", logger.Nop())
	err := job.Run(context.Background())
	assert.True(t, errors.Is(err, gateway.ErrNotAuthenticated))
}

func TestHWMRatchetJob(t *testing.T) {
	srv := gatewaytest.New()
	defer srv.Close()
	store := hwm.NewMemoryStore(90000)
	provider := account.NewProvider(srv.Client(), store, nil, false, logger.Nop())

	job := NewHWMRatchetJob(provider, "0 */15 * * * *", logger.Nop())
	assert.Equal(t, "hwm_ratchet", job.Name())
	require.NoError(t, job.Run(context.Background()))

	mark, _ := store.Read(context.Background())
	assert.Equal(t, 100000.0, mark)

	srv.Lock()
	srv.FailStatus = http.StatusServiceUnavailable
	srv.Unlock()
	assert.Error(t, job.Run(context.Background()))
}
