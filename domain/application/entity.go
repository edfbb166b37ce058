package application

import (
	"approvalflow/domain/activity"
	"approvalflow/domain/state"

	"github.com/fundwit/go-commons/types"
)

// Application is an instance of a workflow version filled in by an applicant. Optional references are zero when
// unset, as are the submit and complete times before the application reaches those points.
type Application struct {
	ID       types.ID `json:"id"`
	IDNumber string   `json:"idNumber" gorm:"unique_index;size:255"`
	Title    string   `json:"title"`

	WorkflowID        types.ID `json:"workflowId" gorm:"index"`
	WorkflowVersionID types.ID `json:"workflowVersionId"`
	FormVersionID     types.ID `json:"formVersionId"`
	AssignmentID      types.ID `json:"assignmentId"`

	ApplicantID     types.ID `json:"applicantId" gorm:"index"`
	JobAssignmentID types.ID `json:"jobAssignmentId"`
	CreatorID       types.ID `json:"creatorId"`
	OwnerID         types.ID `json:"ownerId"`
	SubmitterID     types.ID `json:"submitterId"`

	CreateTime   types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	UpdateTime   types.Timestamp `json:"updateTime" sql:"type:DATETIME(6)"`
	SubmitTime   types.Timestamp `json:"submitTime" sql:"type:DATETIME(6)"`
	CompleteTime types.Timestamp `json:"completeTime" sql:"type:DATETIME(6)"`

	State state.ApplicationState `json:"state" gorm:"embedded"`

	IsPreview bool `json:"isPreview"`
}

func (a *Application) TableName() string {
	return "applications"
}

func (a Application) Ref() activity.Ref {
	return activity.Ref{ID: a.ID, IDNumber: a.IDNumber}
}

func (a Application) IsSubmitted() bool {
	return !a.SubmitTime.IsZero()
}

func (a Application) IsCompleted() bool {
	return !a.CompleteTime.IsZero()
}

// Creation carries the parameters of a new application. Zero values select the defaults: the creator as
// applicant, no job assignment and the workflow type name as title. SourceID is set when cloning.
type Creation struct {
	WorkflowVersionID types.ID `json:"workflowVersionId" binding:"required"`
	AssignmentID      types.ID `json:"assignmentId" binding:"required"`
	CreatorID         types.ID `json:"-"`
	ApplicantID       types.ID `json:"applicantId"`
	JobAssignmentID   types.ID `json:"jobAssignmentId"`
	Title             string   `json:"title" binding:"lte=255"`
	SourceID          types.ID `json:"-"`
}
