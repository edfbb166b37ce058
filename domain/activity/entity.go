package activity

import (
	"approvalflow/common"
	"database/sql/driver"
	"encoding/json"

	"github.com/fundwit/go-commons/types"
)

type Type string

const (
	TypeCreation         Type = "creation"
	TypeStageStarted     Type = "stage_started"
	TypeStageEnded       Type = "stage_ended"
	TypeStageSubmitted   Type = "stage_submitted"
	TypeStageAllApproved Type = "stage_all_approved"
	TypeLevelStarted     Type = "level_started"
	TypeLevelEnded       Type = "level_ended"
	TypeLevelApproved    Type = "level_approved"
	TypeLevelRejected    Type = "level_rejected"
	TypeFinished         Type = "finished"
	TypeWithdrawn        Type = "withdrawn"
	TypeApprovalsReset   Type = "approvals_reset"
	TypeEdited           Type = "edited"
	TypeUploaded         Type = "uploaded"
	TypeCommentCreated   Type = "comment_created"
	TypeCommentUpdated   Type = "comment_updated"
	TypeCommentDeleted   Type = "comment_deleted"
	TypeCommentReplied   Type = "comment_replied"
	TypeNotificationSent Type = "notification_sent"
)

// Activity is an append only ledger entry of an application. UserID 0 denotes the system.
type Activity struct {
	ID              types.ID        `json:"id"`
	ApplicationID   types.ID        `json:"applicationId" gorm:"index"`
	StageID         types.ID        `json:"stageId"`
	ApprovalLevelID types.ID        `json:"approvalLevelId"`
	UserID          types.ID        `json:"userId"`
	Timestamp       types.Timestamp `json:"timestamp" sql:"type:DATETIME(6)"`
	Type            Type            `json:"type"`
	Info            Info            `json:"info" sql:"type:TEXT"`
}

func (a *Activity) TableName() string {
	return "application_activities"
}

// Ref identifies the application an activity is recorded for.
type Ref struct {
	ID       types.ID
	IDNumber string
}

type Info map[string]interface{}

func (i Info) Value() (driver.Value, error) {
	if i == nil {
		return "{}", nil
	}
	jsonBytes, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (i *Info) Scan(v interface{}) error {
	return common.ScanJSONColumn(v, i)
}
