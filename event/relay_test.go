package event_test

import (
	"approvalflow/event"
	"approvalflow/persistence"
	"approvalflow/testinfra"
	"context"
	"testing"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func relaySetup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartMysqlTestDatabase("approvalflow")
	*testDatabase = db
	Expect(db.DS.GormDB(context.Background()).AutoMigrate(&event.EventRecord{}).Error).To(BeNil())
	persistence.ActiveDataSourceManager = db.DS
}

func relayTeardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	event.EventHandlers = nil
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestRelayPendingEvents(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should mark events synced only when all handlers succeed", func(t *testing.T) {
		defer relayTeardown(t, testDatabase)
		relaySetup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())

		e1, err := event.CreateEvent("APPLICATION", 1, "", event.EventCategoryActivity, event.Payload{"ok": true}, nil, types.CurrentTimestamp(), db)
		Expect(err).To(BeNil())
		e2, err := event.CreateEvent("APPLICATION", 2, "", event.EventCategoryActivity, event.Payload{"ok": false}, nil, types.CurrentTimestamp(), db)
		Expect(err).To(BeNil())

		var seen []types.ID
		event.EventHandlers = []event.EventHandler{func(e *event.EventRecord) *event.EventHandleResult {
			seen = append(seen, e.ID)
			return &event.EventHandleResult{Success: e.Payload["ok"] == true, HandlerIdentifier: "probe"}
		}}

		n, err := event.RelayPendingEvents(context.Background())
		Expect(err).To(BeNil())
		Expect(n).To(Equal(1))
		Expect(seen).To(Equal([]types.ID{e1.ID, e2.ID}))

		var pending []event.EventRecord
		Expect(db.Where("synced = ?", false).Find(&pending).Error).To(BeNil())
		Expect(len(pending)).To(Equal(1))
		Expect(pending[0].ID).To(Equal(e2.ID))
		Expect(pending[0].Payload).To(Equal(event.Payload{"ok": false}))

		seen = nil
		n, err = event.RelayPendingEvents(context.Background())
		Expect(err).To(BeNil())
		Expect(n).To(BeZero())
		Expect(seen).To(Equal([]types.ID{e2.ID}))
	})
}

func TestStartRelayCron(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should reject invalid schedule", func(t *testing.T) {
		c, err := event.StartRelayCron("not a schedule")
		Expect(c).To(BeNil())
		Expect(err).ToNot(BeNil())
	})

	t.Run("should start with default schedule", func(t *testing.T) {
		c, err := event.StartRelayCron("")
		Expect(err).To(BeNil())
		Expect(len(c.Entries())).To(Equal(1))
		c.Stop()
	})
}
