package workflow

import (
	"approvalflow/bizerror"
	"errors"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

func FindWorkflowType(db *gorm.DB, id types.ID) (*WorkflowType, error) {
	t := WorkflowType{}
	if err := db.Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func FindWorkflow(db *gorm.DB, id types.ID) (*Workflow, error) {
	w := Workflow{}
	if err := db.Where("id = ?", id).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func FindVersion(db *gorm.DB, id types.ID) (*WorkflowVersion, error) {
	v := WorkflowVersion{}
	if err := db.Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func FindForm(db *gorm.DB, id types.ID) (*Form, error) {
	f := Form{}
	if err := db.Where("id = ?", id).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func FindFormVersion(db *gorm.DB, id types.ID) (*FormVersion, error) {
	v := FormVersion{}
	if err := db.Where("id = ?", id).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// ActiveVersion returns the active version of a workflow, or nil when the workflow has none.
func ActiveVersion(db *gorm.DB, workflowID types.ID) (*WorkflowVersion, error) {
	v := WorkflowVersion{}
	err := db.Where("workflow_id = ? AND status = ?", workflowID, StatusActive).Order("id DESC").First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func LatestVersion(db *gorm.DB, workflowID types.ID) (*WorkflowVersion, error) {
	v := WorkflowVersion{}
	if err := db.Where("workflow_id = ?", workflowID).Order("id DESC").First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func FindStage(db *gorm.DB, id types.ID) (*Stage, error) {
	s := Stage{}
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindStages returns the stages of a workflow version in workflow order.
func FindStages(db *gorm.DB, versionID types.ID) ([]Stage, error) {
	stages := []Stage{}
	if err := db.Where("workflow_version_id = ?", versionID).Order("sort_order ASC, id ASC").Find(&stages).Error; err != nil {
		return nil, err
	}
	return stages, nil
}

func FindLevel(db *gorm.DB, id types.ID) (*ApprovalLevel, error) {
	l := ApprovalLevel{}
	if err := db.Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// FindLevels returns the approval levels of a stage in approval order.
func FindLevels(db *gorm.DB, stageID types.ID) ([]ApprovalLevel, error) {
	levels := []ApprovalLevel{}
	if err := db.Where("stage_id = ?", stageID).Order("sort_order ASC, id ASC").Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

func StageFields(db *gorm.DB, stageID types.ID) ([]StageFormView, error) {
	fields := []StageFormView{}
	if err := db.Where("stage_id = ?", stageID).Order("id ASC").Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

func FirstStage(stages []Stage) *Stage {
	if len(stages) == 0 {
		return nil
	}
	return &stages[0]
}

// NextStage returns the stage following stageID, or nil when stageID is the last stage or unknown.
func NextStage(stages []Stage, stageID types.ID) *Stage {
	for i := range stages {
		if stages[i].ID == stageID && i+1 < len(stages) {
			return &stages[i+1]
		}
	}
	return nil
}

func StageOf(stages []Stage, stageID types.ID) *Stage {
	for i := range stages {
		if stages[i].ID == stageID {
			return &stages[i]
		}
	}
	return nil
}

// FirstStageOfType returns the earliest stage of type t, or nil.
func FirstStageOfType(stages []Stage, t StageType) *Stage {
	for i := range stages {
		if stages[i].Type == t {
			return &stages[i]
		}
	}
	return nil
}

func NextLevel(levels []ApprovalLevel, levelID types.ID) *ApprovalLevel {
	for i := range levels {
		if levels[i].ID == levelID && i+1 < len(levels) {
			return &levels[i+1]
		}
	}
	return nil
}

// LevelInVersion checks that an approval level exists and belongs to the workflow version.
func LevelInVersion(db *gorm.DB, levelID, versionID types.ID) (*ApprovalLevel, error) {
	l, err := FindLevel(db, levelID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &bizerror.ErrPrecondition{Message: fmt.Sprintf("approval level %s does not exist", levelID)}
	}
	if err != nil {
		return nil, err
	}
	if l.WorkflowVersionID != versionID {
		return nil, &bizerror.ErrPrecondition{
			Message: fmt.Sprintf("approval level %s is not part of workflow version %s", levelID, versionID)}
	}
	return l, nil
}
