package workflow

import (
	"approvalflow/bizerror"
	"approvalflow/persistence"
	"context"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var DeleteStageFunc = DeleteStage

// DeleteStage removes a stage of a draft workflow version together with its levels and form views.
// The first stage and the last remaining finished stage cannot be deleted.
func DeleteStage(ctx context.Context, db *gorm.DB, stageID types.ID) error {
	var versionID types.ID
	err := persistence.InTransaction(db, func(tx *gorm.DB) error {
		stage, err := FindStage(tx, stageID)
		if err != nil {
			return err
		}
		versionID = stage.WorkflowVersionID
		version, err := FindVersion(tx, stage.WorkflowVersionID)
		if err != nil {
			return err
		}
		if version.Status != StatusDraft {
			return &bizerror.ErrPrecondition{Message: "stages can only be deleted from a draft workflow version"}
		}

		stages, err := FindStages(tx, stage.WorkflowVersionID)
		if err != nil {
			return err
		}
		if first := FirstStage(stages); first != nil && first.ID == stage.ID {
			return &bizerror.ErrMaliciousInput{Message: "cannot delete the first stage"}
		}
		if stage.Type == StageTypeFinished {
			finished := 0
			for _, s := range stages {
				if s.Type == StageTypeFinished {
					finished++
				}
			}
			if finished <= 1 {
				return &bizerror.ErrMaliciousInput{Message: "cannot delete the only finished stage"}
			}
		}

		if err := tx.Where("stage_id = ?", stage.ID).Delete(&ApprovalLevel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("stage_id = ?", stage.ID).Delete(&StageFormView{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", stage.ID).Delete(&Stage{}).Error
	})
	if err != nil {
		return err
	}

	if d := DefinitionCacheFrom(ctx); d != nil {
		d.forgetStages(versionID)
		d.forgetLevels(stageID)
	}
	return nil
}

// ActivateVersion marks a version active and archives the previously active versions of the workflow.
func ActivateVersion(db *gorm.DB, versionID types.ID) error {
	return persistence.InTransaction(db, func(tx *gorm.DB) error {
		v, err := FindVersion(tx, versionID)
		if err != nil {
			return err
		}
		if err := tx.Model(&WorkflowVersion{}).Where("workflow_id = ? AND status = ? AND id <> ?", v.WorkflowID, StatusActive, v.ID).
			Update("status", StatusArchived).Error; err != nil {
			return err
		}
		if err := tx.Model(&WorkflowVersion{}).Where("id = ?", v.ID).Update("status", StatusActive).Error; err != nil {
			return err
		}
		return tx.Model(&FormVersion{}).Where("id = ?", v.FormVersionID).Update("status", StatusActive).Error
	})
}

// Archive sets a version status to archived, e.g. to retire a workflow while applications stay alive.
func Archive(db *gorm.DB, versionID types.ID) error {
	return db.Model(&WorkflowVersion{}).Where("id = ?", versionID).Update("status", StatusArchived).Error
}
