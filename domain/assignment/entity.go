package assignment

import (
	"approvalflow/domain/workflow"

	"github.com/fundwit/go-commons/types"
)

const (
	ApproverTypeUser         = "user"
	ApproverTypeRelationship = "relationship"

	RelationshipManager = "manager"
)

// Assignment is a node of the organisation tree a workflow is offered in. Approvers configured on a node are
// inherited by its children that configure none for the same level.
type Assignment struct {
	ID         types.ID        `json:"id"`
	WorkflowID types.ID        `json:"workflowId" gorm:"index"`
	Name       string          `json:"name"`
	ParentID   types.ID        `json:"parentId"`
	IsDefault  bool            `json:"isDefault"`
	Status     workflow.Status `json:"status"`
}

func (a Assignment) IsActive() bool {
	return a.Status == workflow.StatusActive
}

type Approver struct {
	ID              types.ID `json:"id"`
	AssignmentID    types.ID `json:"assignmentId" gorm:"index"`
	ApprovalLevelID types.ID `json:"approvalLevelId"`
	Type            string   `json:"type"`
	Identifier      string   `json:"identifier"`
	Active          bool     `json:"active"`
}

func Models() []interface{} {
	return []interface{}{&Assignment{}, &Approver{}}
}
