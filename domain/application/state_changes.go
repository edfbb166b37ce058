package application

import (
	"approvalflow/bizerror"
	"approvalflow/domain/state"
	"approvalflow/domain/workflow"
	"approvalflow/persistence"
	"context"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// ChangeState moves the application to newState, running the exit hook of the current stage and the entry hook of
// the new one. Moving to the current state does nothing. An actorID of zero denotes the system.
// On success app holds the refreshed application.
func ChangeState(ctx context.Context, app *Application, newState state.ApplicationState, actorID types.ID) error {
	if newState.IsSameAs(app.State) {
		return nil
	}
	err := persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		return changeStateTx(ctx, tx, app, newState, actorID)
	})
	if err != nil {
		return err
	}
	afterCommit()
	return nil
}

func changeStateTx(ctx context.Context, tx *gorm.DB, app *Application, newState state.ApplicationState, actorID types.ID) error {
	if newState.IsSameAs(app.State) {
		return nil
	}

	current, err := lockApplication(tx, app.ID)
	if err != nil {
		return err
	}
	if newState.IsSameAs(current.State) {
		*app = *current
		return nil
	}

	newStage, err := stageInVersion(ctx, tx, current.WorkflowVersionID, newState.StageID)
	if err != nil {
		return err
	}
	if newState.HasApprovalLevel() {
		levels, err := workflow.CachedLevels(ctx, tx, newStage.ID)
		if err != nil {
			return err
		}
		if !containsLevel(levels, newState.ApprovalLevelID) {
			return &bizerror.ErrCoding{Message: fmt.Sprintf("approval level %s does not belong to stage %s",
				newState.ApprovalLevelID, newStage.ID)}
		}
	}

	oldState := current.State
	oldManager, err := stateManagerOfStage(ctx, tx, current.WorkflowVersionID, oldState.StageID)
	if err != nil {
		return err
	}
	newManager, err := StateManagerOf(*newStage)
	if err != nil {
		return err
	}

	if err := oldManager.OnStateExit(ctx, tx, current, newState, actorID); err != nil {
		return err
	}
	err = tx.Model(&Application{}).Where("id = ?", current.ID).Updates(map[string]interface{}{
		"current_stage_id":          newState.StageID,
		"is_draft":                  newState.IsDraft,
		"current_approval_level_id": newState.ApprovalLevelID,
		"update_time":               types.CurrentTimestamp(),
	}).Error
	if err != nil {
		return err
	}

	entered, err := findApplication(tx, current.ID)
	if err != nil {
		return err
	}
	if err := newManager.OnStateEntry(ctx, tx, entered, oldState, actorID); err != nil {
		return err
	}
	logrus.Debugf("application %s moved from %s to %s", current.ID, oldState, newState)
	return refresh(tx, app)
}

func containsLevel(levels []workflow.ApprovalLevel, levelID types.ID) bool {
	for _, l := range levels {
		if l.ID == levelID {
			return true
		}
	}
	return false
}
