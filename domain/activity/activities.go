package activity

import (
	"approvalflow/account"
	"approvalflow/event"
	"approvalflow/idgen"
	"approvalflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

const EventSourceApplication = "APPLICATION"

var (
	activityIdWorker = idgen.NewWorker()

	TriggerEventFunc = TriggerEvent
)

// Create validates and appends an activity, then records its outbox event on the same db handle.
func Create(tx *gorm.DB, app Ref, stageID, levelID, userID types.ID, activityType Type, info Info) (*Activity, error) {
	if info == nil {
		info = Info{}
	}
	if err := Validate(activityType, levelID, info); err != nil {
		return nil, err
	}

	a := Activity{
		ID:              idgen.NextID(activityIdWorker),
		ApplicationID:   app.ID,
		StageID:         stageID,
		ApprovalLevelID: levelID,
		UserID:          userID,
		Timestamp:       types.CurrentTimestamp(),
		Type:            activityType,
		Info:            info,
	}
	if err := tx.Create(&a).Error; err != nil {
		return nil, err
	}
	if err := TriggerEventFunc(tx, app, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// TriggerEvent publishes an activity to the event outbox.
func TriggerEvent(tx *gorm.DB, app Ref, a *Activity) error {
	var identity *session.Identity
	if a.UserID != 0 {
		identity = &session.Identity{ID: a.UserID, Name: a.UserID.String()}
		users, err := account.QueryUsers(tx, []types.ID{a.UserID})
		if err != nil {
			return err
		}
		if len(users) > 0 {
			identity.Name = users[0].Name
			identity.Nickname = users[0].Nickname
		}
	}

	payload := event.Payload{
		"activityId":      a.ID.String(),
		"type":            a.Type,
		"stageId":         a.StageID.String(),
		"approvalLevelId": a.ApprovalLevelID.String(),
		"userId":          a.UserID.String(),
		"info":            map[string]interface{}(a.Info),
	}
	_, err := event.CreateEvent(EventSourceApplication, app.ID, app.IDNumber, event.EventCategoryActivity, payload,
		identity, a.Timestamp, tx)
	return err
}

// List returns the activities of an application in the order they were recorded.
func List(db *gorm.DB, appID types.ID) ([]Activity, error) {
	activities := []Activity{}
	if err := db.Where("application_id = ?", appID).Order("id ASC").Find(&activities).Error; err != nil {
		return nil, err
	}
	return activities, nil
}

func DeleteAll(tx *gorm.DB, appID types.ID) error {
	return tx.Where("application_id = ?", appID).Delete(&Activity{}).Error
}
