package service

import (
	"context"
	"time"

	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const BRIDGE_JOB_KEY = "goodwe_mqtt_bridge"

type bridgeJob struct {
	bridge *MQTTBridge
	logger *zap.Logger
}

func (j *bridgeJob) Execute(ctx context.Context) error {
	err := j.bridge.Tick(ctx)
	if err != nil {
		j.logger.Error("bridge tick failed", zap.Error(err))
	}
	return err
}

func (j *bridgeJob) Description() string {
	return BRIDGE_JOB_KEY
}

// ScheduleBridge runs bridge.Tick every interval until ctx is done.
func ScheduleBridge(ctx context.Context, bridge *MQTTBridge, interval time.Duration, logger *zap.Logger) (quartz.Scheduler, error) {
	sched := quartz.NewStdScheduler()
	sched.Start(ctx)

	job := quartz.NewJobDetail(&bridgeJob{bridge: bridge, logger: logger}, quartz.NewJobKey(BRIDGE_JOB_KEY))
	if err := sched.ScheduleJob(job, quartz.NewSimpleTrigger(interval)); err != nil {
		sched.Stop()
		return nil, err
	}
	return sched, nil
}
