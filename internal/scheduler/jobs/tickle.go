package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/pkg/logger"
)

// Tickler is the part of the gateway client the tickle job uses
type Tickler interface {
	Tickle(ctx context.Context) (*gateway.TickleResponse, error)
}

// GatewayTickleJob keeps the Client Portal session from timing out
type GatewayTickleJob struct {
	gateway  Tickler
	schedule string
	logger   *logger.Logger
}

// NewGatewayTickleJob creates a tickle job running on schedule
func NewGatewayTickleJob(gw Tickler, schedule string, log *logger.Logger) *GatewayTickleJob {
	return &GatewayTickleJob{gateway: gw, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *GatewayTickleJob) Name() string {
	return "gateway_tickle"
}

// Schedule returns the cron schedule
func (j *GatewayTickleJob) Schedule() string {
	return j.schedule
}

// Run pings the session and fails when it is no longer authenticated
func (j *GatewayTickleJob) Run(ctx context.Context) error {
	resp, err := j.gateway.Tickle(ctx)
	if err != nil {
		return fmt.Errorf("tickle failed: %w", err)
	}

	auth := resp.IServer.AuthStatus
	if !auth.Authenticated {
		j.logger.WithFields(map[string]interface{}{
			"connected": auth.Connected,
			"competing": auth.Competing,
			"message":   auth.Message,
		}).Warn("Gateway session is not authenticated")
		return gateway.ErrNotAuthenticated
	}
	return nil
}
