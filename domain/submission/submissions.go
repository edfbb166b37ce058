package submission

import (
	"approvalflow/bizerror"
	"approvalflow/domain/form"
	"approvalflow/idgen"
	"approvalflow/persistence"
	"errors"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var submissionIdWorker = idgen.NewWorker()

func newSubmission(appID, stageID, userID types.ID, data form.Data) Submission {
	now := types.CurrentTimestamp()
	return Submission{
		ID:            idgen.NextID(submissionIdWorker),
		ApplicationID: appID,
		StageID:       stageID,
		UserID:        userID,
		CreateTime:    now,
		UpdateTime:    now,
		FormData:      data.Copy(),
	}
}

// FetchOrCreate returns the active submission of the stage when it belongs to userID. Otherwise every active
// submission of the stage is superseded and a new draft submission is created for userID.
// The active submissions of the stage stay locked until tx ends.
func FetchOrCreate(tx *gorm.DB, appID, stageID, userID types.ID) (*Submission, error) {
	var active []Submission
	err := persistence.ForUpdate(tx).Where("application_id = ? AND stage_id = ? AND superseded = ?", appID, stageID, false).
		Order("id ASC").Find(&active).Error
	if err != nil {
		return nil, err
	}
	if len(active) == 1 && active[0].UserID == userID {
		return &active[0], nil
	}

	data := form.Data{}
	if len(active) > 0 {
		data = active[len(active)-1].FormData
		if err := supersede(tx, appID, stageID); err != nil {
			return nil, err
		}
	}
	s := newSubmission(appID, stageID, userID, data)
	if err := tx.Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func supersede(tx *gorm.DB, appID, stageID types.ID) error {
	return tx.Model(&Submission{}).Where("application_id = ? AND stage_id = ? AND superseded = ?", appID, stageID, false).
		Update("superseded", true).Error
}

// SaveFormData replaces the form data of a submission.
func SaveFormData(tx *gorm.DB, s *Submission, data form.Data) error {
	now := types.CurrentTimestamp()
	err := tx.Model(&Submission{}).Where("id = ?", s.ID).
		Updates(map[string]interface{}{"form_data": data, "update_time": now}).Error
	if err != nil {
		return err
	}
	s.FormData = data
	s.UpdateTime = now
	return nil
}

// Publish stamps the submit time of a draft submission.
func Publish(tx *gorm.DB, s *Submission, userID types.ID) error {
	if s.IsPublished() {
		return &bizerror.ErrCoding{Message: "Submission has already been published"}
	}
	now := types.CurrentTimestamp()
	err := tx.Model(&Submission{}).Where("id = ?", s.ID).
		Updates(map[string]interface{}{"submit_time": now, "update_time": now, "user_id": userID}).Error
	if err != nil {
		return err
	}
	s.SubmitTime = now
	s.UpdateTime = now
	s.UserID = userID
	return nil
}

// SupersedeForStage supersedes the submissions of the stage and creates a new draft submission at the stage for
// userID, seeded with the data of the latest active submission of the application whatever its stage. It creates
// nothing when the application has no active submission.
func SupersedeForStage(tx *gorm.DB, appID, stageID, userID types.ID) (*Submission, error) {
	var locked []Submission
	err := persistence.ForUpdate(tx).Where("application_id = ? AND superseded = ?", appID, false).
		Order("id DESC").Find(&locked).Error
	if err != nil {
		return nil, err
	}
	if len(locked) == 0 {
		return nil, nil
	}
	if err := supersede(tx, appID, stageID); err != nil {
		return nil, err
	}
	s := newSubmission(appID, stageID, userID, locked[0].FormData)
	if err := tx.Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Clone copies a submission to another application and stage as an active draft.
func Clone(tx *gorm.DB, src *Submission, appID, stageID types.ID, data form.Data) (*Submission, error) {
	s := newSubmission(appID, stageID, src.UserID, data)
	if err := tx.Create(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func first(query *gorm.DB) (*Submission, error) {
	s := Submission{}
	err := query.Order("id DESC").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LastSubmission returns the latest active submission of the application, nil if there is none.
func LastSubmission(db *gorm.DB, appID types.ID) (*Submission, error) {
	return first(db.Where("application_id = ? AND superseded = ?", appID, false))
}

// LastPublishedSubmission returns the latest published active submission of the application, nil if there is none.
func LastPublishedSubmission(db *gorm.DB, appID types.ID) (*Submission, error) {
	return first(db.Where("application_id = ? AND superseded = ? AND submit_time > ?", appID, false, types.Timestamp{}))
}

// LastSubmissionFor returns the latest submission of the stage, superseded or not, nil if there is none.
func LastSubmissionFor(db *gorm.DB, appID, stageID types.ID) (*Submission, error) {
	return first(db.Where("application_id = ? AND stage_id = ?", appID, stageID))
}

// ActiveSubmissions lists the active submissions of the stage.
func ActiveSubmissions(db *gorm.DB, appID, stageID types.ID) ([]Submission, error) {
	subs := []Submission{}
	err := db.Where("application_id = ? AND stage_id = ? AND superseded = ?", appID, stageID, false).
		Order("id ASC").Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func List(db *gorm.DB, appID types.ID) ([]Submission, error) {
	subs := []Submission{}
	if err := db.Where("application_id = ?", appID).Order("id ASC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func DeleteUnpublished(tx *gorm.DB, appID types.ID) error {
	return tx.Where("application_id = ? AND submit_time <= ?", appID, types.Timestamp{}).Delete(&Submission{}).Error
}

func DeleteAll(tx *gorm.DB, appID types.ID) error {
	return tx.Where("application_id = ?", appID).Delete(&Submission{}).Error
}
