package event

import (
	"approvalflow/common"
	"database/sql/driver"
	"encoding/json"

	"github.com/fundwit/go-commons/types"
)

const (
	EventCategoryCreated  = "CREATED"
	EventCategoryDeleted  = "DELETED"
	EventCategoryActivity = "ACTIVITY"
)

type EventCategory string

type Event struct {
	SourceId   types.ID `json:"sourceId"`
	SourceType string   `json:"sourceType"`
	SourceDesc string   `json:"sourceDesc"`

	CreatorId   types.ID `json:"creatorId"`
	CreatorName string   `json:"creatorName"`

	EventCategory EventCategory `json:"eventCategory"`
	Payload       Payload       `json:"payload" sql:"type:TEXT"`
}

type EventRecord struct {
	ID types.ID `json:"id" gorm:"primary_key"`
	Event

	Timestamp types.Timestamp `json:"timestamp" sql:"type:DATETIME(6)"`
	Synced    bool            `json:"synced" gorm:"index"`
}

func (r *EventRecord) TableName() string {
	return "events"
}

type Payload map[string]interface{}

func (t Payload) Value() (driver.Value, error) {
	if t == nil {
		return "{}", nil
	}
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *Payload) Scan(v interface{}) error {
	return common.ScanJSONColumn(v, c)
}
