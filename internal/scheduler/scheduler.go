package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

type Task func(ctx context.Context) error

// Start runs task on the cron schedule expr until ctx is done.
// A run still in progress when the next one is due causes that one to be
// skipped. When runNow is set the task also fires once immediately.
func Start(ctx context.Context, expr, name string, runNow bool, task Task) error {
	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	_, err := c.AddFunc(expr, func() {
		if err := task(ctx); err != nil {
			log.Printf("[%s] error: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	c.Start()
	log.Printf("[%s] scheduled expr=%q", name, expr)

	if runNow {
		go func() {
			if err := task(ctx); err != nil {
				log.Printf("[%s] error: %v", name, err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Printf("[%s] stopped", name)
	}()
	return nil
}
