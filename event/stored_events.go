package event

import (
	"approvalflow/idgen"
	"approvalflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	eventIdWorker = idgen.NewWorker()

	EventPersistCreateFunc = eventPersistCreate
)

// CreateEvent records an event in the outbox using db, normally the transaction of the change it describes.
// A nil identity denotes the system.
func CreateEvent(sourceType string, sourceId types.ID, sourceDesc string, category EventCategory, payload Payload,
	identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*EventRecord, error) {

	record := EventRecord{
		ID: idgen.NextID(eventIdWorker),
		Event: Event{
			SourceType: sourceType,
			SourceId:   sourceId,
			SourceDesc: sourceDesc,

			EventCategory: category,
			Payload:       payload,
		},
		Synced:    false,
		Timestamp: timestamp,
	}
	if identity != nil {
		record.CreatorId = identity.ID
		record.CreatorName = identity.Name
	} else {
		record.CreatorName = "system"
	}
	if err := EventPersistCreateFunc(&record, db); err != nil {
		return nil, err
	}
	return &record, nil
}

func eventPersistCreate(record *EventRecord, db *gorm.DB) error {
	return db.Create(record).Error
}

// DefaultEventPersistCreate restores the stubbed persistence hook in tests.
var DefaultEventPersistCreate = eventPersistCreate
