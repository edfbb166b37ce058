package action

import (
	"approvalflow/domain/form"
	"approvalflow/idgen"
	"errors"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var actionIdWorker = idgen.NewWorker()

// Create records an action and supersedes the previous actions taken at the same stage.
func Create(tx *gorm.DB, appID, stageID, levelID, userID types.ID, code Code, data form.Data) (*Action, error) {
	if err := SupersedeActionsForStage(tx, appID, stageID); err != nil {
		return nil, err
	}
	a := Action{
		ID:              idgen.NextID(actionIdWorker),
		ApplicationID:   appID,
		UserID:          userID,
		StageID:         stageID,
		ApprovalLevelID: levelID,
		Code:            code,
		CreateTime:      types.CurrentTimestamp(),
		FormData:        data.Copy(),
	}
	if err := tx.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func SupersedeActionsForStage(tx *gorm.DB, appID, stageID types.ID) error {
	return tx.Model(&Action{}).Where("application_id = ? AND stage_id = ? AND superseded = ?", appID, stageID, false).
		Update("superseded", true).Error
}

// SupersedeCode supersedes the actions of the given code wherever they were taken.
func SupersedeCode(tx *gorm.DB, appID types.ID, code Code) error {
	return tx.Model(&Action{}).Where("application_id = ? AND code = ? AND superseded = ?", appID, code, false).
		Update("superseded", true).Error
}

func first(query *gorm.DB) (*Action, error) {
	a := Action{}
	err := query.Order("id DESC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LastAction returns the latest active action of the application, nil if there is none.
func LastAction(db *gorm.DB, appID types.ID) (*Action, error) {
	return first(db.Where("application_id = ? AND superseded = ?", appID, false))
}

// LastActionOf returns the latest action the user took on the application, superseded or not. Nil if there is none.
func LastActionOf(db *gorm.DB, appID, userID types.ID) (*Action, error) {
	return first(db.Where("application_id = ? AND user_id = ?", appID, userID))
}

func List(db *gorm.DB, appID types.ID) ([]Action, error) {
	actions := []Action{}
	if err := db.Where("application_id = ?", appID).Order("id ASC").Find(&actions).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

func DeleteAll(tx *gorm.DB, appID types.ID) error {
	return tx.Where("application_id = ?", appID).Delete(&Action{}).Error
}
