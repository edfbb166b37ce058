package application

import (
	"approvalflow/account"
	"approvalflow/domain/assignment"
	"approvalflow/domain/workflow"
	"context"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var GetApproverUsersFunc = GetApproverUsers

// GetApproverUsers resolves the users approving the application at levelID, or at its current level when levelID is
// zero. Unless ignoreCaps is set, only users currently able to approve the application are kept.
func GetApproverUsers(ctx context.Context, app *Application, levelID types.ID, ignoreCaps bool) ([]account.User, error) {
	return approverUsers(ctx, gormDB(ctx), app, levelID, ignoreCaps)
}

func approverUsers(ctx context.Context, db *gorm.DB, app *Application, levelID types.ID, ignoreCaps bool) ([]account.User, error) {
	if levelID == 0 {
		levelID = app.State.ApprovalLevelID
	}
	if levelID == 0 {
		return []account.User{}, nil
	}
	if _, err := workflow.LevelInVersion(db, levelID, app.WorkflowVersionID); err != nil {
		return nil, err
	}

	approvers, err := assignment.ApproversWithInheritance(db, app.AssignmentID, levelID)
	if err != nil {
		return nil, err
	}
	ids, err := assignment.ResolveApprovers(db, approvers, app.ApplicantID, app.JobAssignmentID)
	if err != nil {
		return nil, err
	}
	users, err := account.QueryUsers(db, ids)
	if err != nil {
		return nil, err
	}
	if ignoreCaps {
		return users, nil
	}

	approving := []account.User{}
	for _, u := range users {
		it, err := newInteractor(ctx, db, app, u.ID, nil)
		if err != nil {
			return nil, err
		}
		can, err := it.CanApprove()
		if err != nil {
			return nil, err
		}
		if can {
			approving = append(approving, u)
		}
	}
	return approving, nil
}
