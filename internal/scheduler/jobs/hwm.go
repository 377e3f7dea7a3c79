package jobs

import (
	"context"

	"github.com/wonny/ibdash/pkg/logger"
)

// Ratcheter raises the stored high-water mark from the current net liquidation
type Ratcheter interface {
	Ratchet(ctx context.Context) (nlv, mark float64, err error)
}

// HWMRatchetJob records new net-liquidation highs between dashboard visits
type HWMRatchetJob struct {
	account  Ratcheter
	schedule string
	logger   *logger.Logger
}

// NewHWMRatchetJob creates a ratchet job running on schedule
func NewHWMRatchetJob(account Ratcheter, schedule string, log *logger.Logger) *HWMRatchetJob {
	return &HWMRatchetJob{account: account, schedule: schedule, logger: log}
}

// Name returns the job name
func (j *HWMRatchetJob) Name() string {
	return "hwm_ratchet"
}

// Schedule returns the cron schedule
func (j *HWMRatchetJob) Schedule() string {
	return j.schedule
}

// Run reads net liquidation and ratchets the mark
func (j *HWMRatchetJob) Run(ctx context.Context) error {
	nlv, mark, err := j.account.Ratchet(ctx)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"net_liquidation": nlv,
		"high_water_mark": mark,
	}).Debug("High-water mark checked")
	return nil
}
