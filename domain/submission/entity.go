package submission

import (
	"approvalflow/domain/form"

	"github.com/fundwit/go-commons/types"
)

// Submission is a copy of the form data entered at a stage. For each application and stage at most one submission
// is not superseded. A zero SubmitTime marks a draft copy.
type Submission struct {
	ID            types.ID        `json:"id"`
	ApplicationID types.ID        `json:"applicationId" gorm:"index:idx_submission_app_stage"`
	StageID       types.ID        `json:"stageId" gorm:"index:idx_submission_app_stage"`
	UserID        types.ID        `json:"userId"`
	CreateTime    types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	UpdateTime    types.Timestamp `json:"updateTime" sql:"type:DATETIME(6)"`
	SubmitTime    types.Timestamp `json:"submitTime" sql:"type:DATETIME(6)"`
	Superseded    bool            `json:"superseded"`
	FormData      form.Data       `json:"formData" sql:"type:TEXT"`
}

func (s *Submission) TableName() string {
	return "application_submissions"
}

func (s Submission) IsPublished() bool {
	return !s.SubmitTime.IsZero()
}
