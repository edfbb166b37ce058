package workflow

import (
	"github.com/fundwit/go-commons/types"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

type StageType string

const (
	StageTypeFormSubmission StageType = "form_submission"
	StageTypeApprovals      StageType = "approvals"
	StageTypeWaiting        StageType = "waiting"
	StageTypeFinished       StageType = "finished"
)

func (t StageType) IsValid() bool {
	switch t {
	case StageTypeFormSubmission, StageTypeApprovals, StageTypeWaiting, StageTypeFinished:
		return true
	}
	return false
}

type WorkflowType struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name" gorm:"unique_index"`
}

type Workflow struct {
	ID             types.ID        `json:"id"`
	Name           string          `json:"name"`
	WorkflowTypeID types.ID        `json:"workflowTypeId"`
	FormID         types.ID        `json:"formId"`
	CreateTime     types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

type WorkflowVersion struct {
	ID            types.ID        `json:"id"`
	WorkflowID    types.ID        `json:"workflowId" gorm:"index"`
	FormVersionID types.ID        `json:"formVersionId"`
	Status        Status          `json:"status"`
	CreateTime    types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (v WorkflowVersion) IsActive() bool {
	return v.Status == StatusActive
}

type Form struct {
	ID         types.ID `json:"id"`
	Title      string   `json:"title"`
	PluginName string   `json:"pluginName"`
}

type FormVersion struct {
	ID     types.ID `json:"id"`
	FormID types.ID `json:"formId" gorm:"index"`
	Status Status   `json:"status"`
}

func (v FormVersion) IsActive() bool {
	return v.Status == StatusActive
}

type Stage struct {
	ID                types.ID  `json:"id"`
	WorkflowVersionID types.ID  `json:"workflowVersionId" gorm:"index"`
	Name              string    `json:"name"`
	Type              StageType `json:"type"`
	SortOrder         int       `json:"sortOrder"`
}

type ApprovalLevel struct {
	ID                types.ID `json:"id"`
	WorkflowVersionID types.ID `json:"workflowVersionId" gorm:"index"`
	StageID           types.ID `json:"stageId" gorm:"index"`
	Name              string   `json:"name"`
	SortOrder         int      `json:"sortOrder"`
}

// StageFormView lists a form field editable at a stage.
type StageFormView struct {
	ID       types.ID `json:"id"`
	StageID  types.ID `json:"stageId" gorm:"index"`
	FieldKey string   `json:"fieldKey"`
	Required bool     `json:"required"`
}

func Models() []interface{} {
	return []interface{}{&WorkflowType{}, &Workflow{}, &WorkflowVersion{}, &Form{}, &FormVersion{},
		&Stage{}, &ApprovalLevel{}, &StageFormView{}}
}
