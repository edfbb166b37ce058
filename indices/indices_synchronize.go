package indices

import (
	"approvalflow/authority"
	"approvalflow/bizerror"
	"approvalflow/client/es"
	"approvalflow/domain/activity"
	"approvalflow/domain/application"
	"approvalflow/domain/workflow"
	"approvalflow/event"
	"approvalflow/session"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/gorm"
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	ApplicationIndexEventHandlerName = "applicationIndexer"

	lock    sync.Mutex
	running bool

	syncRequestLimiter = rate.NewLimiter(rate.Every(time.Minute), 1)

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

// ScheduleNewSyncRun starts a full sync in background, dropping the index first when rebuild is set. It reports
// false when a run is in progress or when the previous request was too recent.
func ScheduleNewSyncRun(s *session.Session, rebuild bool) (bool, error) {
	if !s.Perms.HasRole(authority.SystemAdmin) {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running || !syncRequestLimiter.Allow() {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	go func() {
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		if rebuild {
			if err := es.DropIndexFunc(context.Background(), ApplicationIndexName); err != nil {
				logrus.Warnf("indices rebuild: drop index %s: %v", ApplicationIndexName, err)
				return
			}
		}
		if err := IndicesFullSyncFunc(); err != nil {
			logrus.Warnf("indices full sync: %v", err)
		}
	}()
	return true, nil
}

var (
	SyncBatchSize = 500

	// MaxSyncLoadFailures bounds the consecutive pages which could not be loaded before a full sync gives up.
	MaxSyncLoadFailures = 3
)

func IndicesFullSync() (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	ctx := workflow.WithDefinitionCache(context.Background(), workflow.NewDefinitionCache(10*time.Minute))
	if err := es.EnsureIndexFunc(ctx, ApplicationIndexName, ApplicationIndexMapping); err != nil {
		return err
	}

	page := 1
	failures := 0
	for {
		apps, err := application.LoadApplicationsFunc(ctx, page, SyncBatchSize)
		if err != nil {
			logrus.Warnf("indices full sync: error on retrieve applications(page = %d, pageSize = %d): %v",
				page, SyncBatchSize, err)
			failures++
			if failures >= MaxSyncLoadFailures {
				return err
			}
			page++
			continue
		}
		failures = 0

		if len(apps) == 0 {
			logrus.Infof("indices full sync: there are no more applications to index")
			return nil
		}
		if err := IndexApplications(ctx, apps); err != nil {
			logrus.Warnf("indices full sync: error on index applications(page = %d, pageSize = %d): %v",
				page, SyncBatchSize, err)
		}
		page++
	}
}

func failed(message string) *event.EventHandleResult {
	return &event.EventHandleResult{Message: message, HandlerIdentifier: ApplicationIndexEventHandlerName}
}

// IndexApplicationEventHandle keeps the application index in line with the outbox. A deleted application is removed
// from the index, any other event re-indexes the current row.
func IndexApplicationEventHandle(e *event.EventRecord) *event.EventHandleResult {
	if e.SourceType != activity.EventSourceApplication {
		return nil
	}
	ctx := workflow.WithDefinitionCache(context.Background(), workflow.NewDefinitionCache(time.Minute))

	if e.EventCategory != event.EventCategoryDeleted {
		app, err := application.FindApplicationFunc(ctx, e.SourceId)
		if err == nil {
			if err := IndexApplications(ctx, []application.Application{*app}); err != nil {
				return failed(fmt.Sprintf("index application %d, %v", e.SourceId, err))
			}
			return &event.EventHandleResult{Success: true, HandlerIdentifier: ApplicationIndexEventHandlerName}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return failed(fmt.Sprintf("find application %d, %v", e.SourceId, err))
		}
	}

	if err := es.DeleteDocumentByIdFunc(ctx, ApplicationIndexName, e.SourceId); err != nil {
		return failed(fmt.Sprintf("delete application index %d, %v", e.SourceId, err))
	}
	return &event.EventHandleResult{Success: true, HandlerIdentifier: ApplicationIndexEventHandlerName}
}

// StartCron runs the full sync on schedule, every night at 23:00 by default.
func StartCron(schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = "0 0 23 * * ?"
	}
	crontab := cron.New(cron.WithSeconds())
	_, err := crontab.AddFunc(schedule, func() {
		if err := IndicesFullSyncFunc(); err != nil {
			logrus.Warnf("indices full sync: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	crontab.Start()
	return crontab, nil
}
