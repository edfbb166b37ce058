package application

import (
	"approvalflow/domain/action"
	"approvalflow/domain/workflow"
	"context"

	"github.com/jinzhu/gorm"
)

const (
	ProgressDraft      = "DRAFT"
	ProgressInProgress = "IN_PROGRESS"
	ProgressRejected   = "REJECTED"
	ProgressWithdrawn  = "WITHDRAWN"
	ProgressFinished   = "FINISHED"

	ProgressPending  = "PENDING"
	ProgressApproved = "APPROVED"
	ProgressNA       = "NA"
)

// OverallProgress summarises where the application stands for every viewer.
func OverallProgress(ctx context.Context, db *gorm.DB, app *Application) (string, error) {
	last, err := action.LastAction(db, app.ID)
	if err != nil {
		return "", err
	}
	if last != nil {
		if last.Code == action.CodeReject {
			return ProgressRejected, nil
		}
		if last.Code.IsWithdraw() {
			return ProgressWithdrawn, nil
		}
	}
	if app.State.IsDraft {
		return ProgressDraft, nil
	}
	stage, err := stageInVersion(ctx, db, app.WorkflowVersionID, app.State.StageID)
	if err != nil {
		return "", err
	}
	if stage.Type == workflow.StageTypeFinished {
		return ProgressFinished, nil
	}
	return ProgressInProgress, nil
}

// YourProgress summarises the application from the point of view of the interacting user.
func YourProgress(it *Interactor) (string, error) {
	pending, err := it.IsPending()
	if err != nil {
		return "", err
	}
	if pending {
		return ProgressPending, nil
	}
	last, err := action.LastActionOf(it.db, it.app.ID, it.userID)
	if err != nil {
		return "", err
	}
	if last != nil {
		switch last.Code {
		case action.CodeApprove:
			return ProgressApproved, nil
		case action.CodeReject:
			return ProgressRejected, nil
		}
	}
	return ProgressNA, nil
}
