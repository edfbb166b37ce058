package state

import (
	"fmt"

	"github.com/fundwit/go-commons/types"
)

// ApplicationState identifies a point in a workflow: the current stage, whether the application is still a draft,
// and the current approval level (zero outside approval stages).
//
// It is flattened onto the application row. The constructor does not check that the level belongs to the stage or
// that only the first stage is draft; callers are responsible for passing a meaningful combination.
type ApplicationState struct {
	StageID         types.ID `json:"stageId" gorm:"column:current_stage_id"`
	IsDraft         bool     `json:"isDraft" gorm:"column:is_draft"`
	ApprovalLevelID types.ID `json:"approvalLevelId" gorm:"column:current_approval_level_id"`
}

func NewApplicationState(stageID types.ID, isDraft bool, approvalLevelID types.ID) ApplicationState {
	return ApplicationState{StageID: stageID, IsDraft: isDraft, ApprovalLevelID: approvalLevelID}
}

// IsSameAs compares all three fields.
func (s ApplicationState) IsSameAs(other ApplicationState) bool {
	return s.StageID == other.StageID && s.IsDraft == other.IsDraft && s.ApprovalLevelID == other.ApprovalLevelID
}

func (s ApplicationState) IsStage(stageID types.ID) bool {
	return s.StageID == stageID
}

func (s ApplicationState) HasApprovalLevel() bool {
	return s.ApprovalLevelID != 0
}

func (s ApplicationState) String() string {
	return fmt.Sprintf("stage=%s draft=%t level=%s", s.StageID, s.IsDraft, s.ApprovalLevelID)
}
