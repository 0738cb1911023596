package cronjob

import (
	"time"

	"github.com/igor04091968/v2panel/config"

	"github.com/robfig/cron/v3"
)

type CronJob struct {
	cron       *cron.Cron
	configs    ConfigSource
	supervisor Supervisor
	usage      UsageSampler
}

func NewCronJob(configs ConfigSource, supervisor Supervisor, usage UsageSampler) *CronJob {
	return &CronJob{
		configs:    configs,
		supervisor: supervisor,
		usage:      usage,
	}
}

func (c *CronJob) Start(loc *time.Location, keepAlive config.KeepAlive) error {
	c.cron = cron.New(cron.WithLocation(loc), cron.WithSeconds())

	if keepAlive.Enabled {
		if _, err := c.cron.AddJob(keepAlive.Schedule, NewCheckBackendJob(c.configs, c.supervisor)); err != nil {
			return err
		}
	}
	if _, err := c.cron.AddJob("@every 1m", NewStatsJob(c.supervisor, c.usage)); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

func (c *CronJob) Stop() {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
}
