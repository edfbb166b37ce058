package event

import (
	"approvalflow/persistence"
	"context"
	"sync"
	"time"

	"github.com/fundwit/go-commons/types"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	RelayBatchSize = 200

	relayLock    sync.Mutex
	relayLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

	RelayPendingEventsFunc = RelayPendingEvents
)

// RelayPendingEvents hands unsynced outbox events to the registered handlers in id order. An event is marked synced
// once no handler reported a failure for it. Returns the number of events marked synced.
func RelayPendingEvents(ctx context.Context) (int, error) {
	relayLock.Lock()
	defer relayLock.Unlock()

	if persistence.ActiveDataSourceManager == nil {
		return 0, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	if db == nil {
		return 0, nil
	}
	synced := 0
	var lastID types.ID
	for {
		var records []EventRecord
		if err := db.Where("synced = ? AND id > ?", false, lastID).Order("id ASC").Limit(RelayBatchSize).
			Find(&records).Error; err != nil {
			return synced, err
		}
		if len(records) == 0 {
			return synced, nil
		}

		for i := range records {
			record := &records[i]
			lastID = record.ID
			if !allSucceeded(InvokeHandlersFunc(record)) {
				continue
			}
			if err := db.Model(&EventRecord{}).Where("id = ?", record.ID).Update("synced", true).Error; err != nil {
				return synced, err
			}
			synced++
		}
	}
}

func allSucceeded(results []EventHandleResult) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

// TriggerRelay runs a relay in the background unless one was triggered within the last second.
func TriggerRelay() bool {
	if !relayLimiter.Allow() {
		return false
	}
	go func() {
		if _, err := RelayPendingEventsFunc(context.Background()); err != nil {
			logrus.Warnf("event relay: %v", err)
		}
	}()
	return true
}

func StartRelayCron(schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = "@every 10s"
	}
	crontab := cron.New(cron.WithSeconds())
	_, err := crontab.AddFunc(schedule, func() {
		n, err := RelayPendingEventsFunc(context.Background())
		if err != nil {
			logrus.Warnf("event relay: %v", err)
			return
		}
		if n > 0 {
			logrus.Infof("event relay: %d events synced", n)
		}
	})
	if err != nil {
		return nil, err
	}
	crontab.Start()
	return crontab, nil
}
