package action

import (
	"approvalflow/domain/form"

	"github.com/fundwit/go-commons/types"
)

// Code identifies the kind of an action. The values are stored and must stay stable.
type Code int

const (
	CodeApprove                  Code = 1
	CodeReject                   Code = 2
	CodeWithdrawBeforeSubmission Code = 3
	CodeWithdrawInApprovals      Code = 4
	CodeSubmit                   Code = 5
)

func (c Code) String() string {
	switch c {
	case CodeApprove:
		return "approve"
	case CodeReject:
		return "reject"
	case CodeWithdrawBeforeSubmission:
		return "withdraw_before_submission"
	case CodeWithdrawInApprovals:
		return "withdraw_in_approvals"
	case CodeSubmit:
		return "submit"
	}
	return "unknown"
}

func (c Code) IsWithdraw() bool {
	return c == CodeWithdrawBeforeSubmission || c == CodeWithdrawInApprovals
}

// Action is a decision taken on an application at a stage. Per application and stage at most one action is not
// superseded.
type Action struct {
	ID              types.ID        `json:"id"`
	ApplicationID   types.ID        `json:"applicationId" gorm:"index"`
	UserID          types.ID        `json:"userId"`
	StageID         types.ID        `json:"stageId"`
	ApprovalLevelID types.ID        `json:"approvalLevelId"`
	Code            Code            `json:"code"`
	CreateTime      types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
	Superseded      bool            `json:"superseded"`
	FormData        form.Data       `json:"formData" sql:"type:TEXT"`
}

func (a *Action) TableName() string {
	return "application_actions"
}
