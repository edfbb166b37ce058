package application

import (
	"approvalflow/bizerror"
	"approvalflow/domain/action"
	"approvalflow/domain/activity"
	"approvalflow/domain/form"
	"approvalflow/domain/state"
	"approvalflow/domain/submission"
	"approvalflow/domain/workflow"
	"approvalflow/persistence"
	"context"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// ActionStrategy is a decision an actor takes on an application.
type ActionStrategy interface {
	Code() action.Code
	Name() string
	// IsActionable tells whether the interacting user may take the action now.
	IsActionable(it *Interactor) (bool, error)
	// Execute takes the action on behalf of actorID. On success app holds the refreshed application.
	Execute(ctx context.Context, app *Application, actorID types.ID) error
}

var strategies = []ActionStrategy{
	&approveStrategy{},
	&rejectStrategy{},
	&withdrawBeforeSubmissionStrategy{},
	&withdrawInApprovalsStrategy{},
	&submitStrategy{},
}

func ActionStrategies() []ActionStrategy {
	return strategies
}

func ActionStrategyOf(code action.Code) (ActionStrategy, error) {
	for _, s := range strategies {
		if s.Code() == code {
			return s, nil
		}
	}
	return nil, &bizerror.ErrInvalidInput{Field: "action", Message: fmt.Sprintf("unknown action code %d", code)}
}

func ActionStrategyByName(name string) (ActionStrategy, error) {
	for _, s := range strategies {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, &bizerror.ErrInvalidInput{Field: "action", Message: fmt.Sprintf("unknown action '%s'", name)}
}

func cannotTakeAction() error {
	return &bizerror.ErrCoding{Message: "Cannot take an action"}
}

// actionContext is the locked application seen by a strategy inside its transaction.
type actionContext struct {
	ctx     context.Context
	tx      *gorm.DB
	app     *Application
	stage   workflow.Stage
	manager StateManager
	actorID types.ID
}

// record stores the decision at the current stage and level with the last submitted form data.
func (ac *actionContext) record(code action.Code) error {
	var data form.Data
	last, err := submission.LastSubmission(ac.tx, ac.app.ID)
	if err != nil {
		return err
	}
	if last != nil {
		data = last.FormData
	}
	_, err = action.Create(ac.tx, ac.app.ID, ac.app.State.StageID, ac.app.State.ApprovalLevelID, ac.actorID, code, data)
	return err
}

func (ac *actionContext) moveTo(next state.ApplicationState) error {
	return changeStateTx(ac.ctx, ac.tx, ac.app, next, ac.actorID)
}

func (ac *actionContext) firstFormStageState() (state.ApplicationState, error) {
	stages, err := workflow.CachedStages(ac.ctx, ac.tx, ac.app.WorkflowVersionID)
	if err != nil {
		return state.ApplicationState{}, err
	}
	formStage := workflow.FirstStageOfType(stages, workflow.StageTypeFormSubmission)
	if formStage == nil {
		return state.ApplicationState{}, &bizerror.ErrCoding{Message: "Workflow version has no form stage"}
	}
	return state.NewApplicationState(formStage.ID, false, 0), nil
}

// executeAction locks the application, checks that it has not moved since the caller looked at it and runs the
// strategy body in one transaction.
func executeAction(ctx context.Context, app *Application, actorID types.ID, code action.Code,
	applies func(ac *actionContext) (bool, error), run func(ac *actionContext) error) error {

	err := persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		current, err := lockApplication(tx, app.ID)
		if err != nil {
			return err
		}
		if !current.State.IsSameAs(app.State) {
			return cannotTakeAction()
		}
		stage, err := stageInVersion(ctx, tx, current.WorkflowVersionID, current.State.StageID)
		if err != nil {
			return err
		}
		manager, err := StateManagerOf(*stage)
		if err != nil {
			return err
		}

		ac := &actionContext{ctx: ctx, tx: tx, app: current, stage: *stage, manager: manager, actorID: actorID}
		ok, err := applies(ac)
		if err != nil {
			return err
		}
		if !ok {
			return cannotTakeAction()
		}
		if err := run(ac); err != nil {
			return err
		}
		return refresh(tx, app)
	})
	if err != nil {
		return err
	}
	logrus.Debugf("action %s taken on application %s by %s", code, app.ID, actorID)
	afterCommit()
	return nil
}

func inApprovalLevel(ac *actionContext) (bool, error) {
	return ac.stage.Type == workflow.StageTypeApprovals && !ac.app.State.IsDraft && ac.app.State.HasApprovalLevel(), nil
}

type approveStrategy struct{}

func (s *approveStrategy) Code() action.Code {
	return action.CodeApprove
}

func (s *approveStrategy) Name() string {
	return s.Code().String()
}

func (s *approveStrategy) IsActionable(it *Interactor) (bool, error) {
	if !it.app.State.HasApprovalLevel() {
		return false, nil
	}
	return it.CanApprove()
}

func (s *approveStrategy) Execute(ctx context.Context, app *Application, actorID types.ID) error {
	return executeAction(ctx, app, actorID, s.Code(), inApprovalLevel, func(ac *actionContext) error {
		prior := ac.app.State
		next, err := ac.manager.NextState(ac.ctx, ac.tx, prior)
		if err != nil {
			return err
		}
		if err := ac.record(s.Code()); err != nil {
			return err
		}
		if err := ac.moveTo(next); err != nil {
			return err
		}
		if _, err := activity.Create(ac.tx, ac.app.Ref(), prior.StageID, prior.ApprovalLevelID, actorID,
			activity.TypeLevelApproved, nil); err != nil {
			return err
		}
		if next.IsStage(prior.StageID) {
			return nil
		}
		_, err = activity.Create(ac.tx, ac.app.Ref(), prior.StageID, 0, actorID, activity.TypeStageAllApproved, nil)
		return err
	})
}

type rejectStrategy struct{}

func (s *rejectStrategy) Code() action.Code {
	return action.CodeReject
}

func (s *rejectStrategy) Name() string {
	return s.Code().String()
}

func (s *rejectStrategy) IsActionable(it *Interactor) (bool, error) {
	if !it.app.State.HasApprovalLevel() {
		return false, nil
	}
	return it.CanApprove()
}

func (s *rejectStrategy) Execute(ctx context.Context, app *Application, actorID types.ID) error {
	return executeAction(ctx, app, actorID, s.Code(), inApprovalLevel, func(ac *actionContext) error {
		return sendBack(ac, s.Code(), activity.TypeLevelRejected)
	})
}

// sendBack returns the application to the first form stage.
func sendBack(ac *actionContext, code action.Code, activityType activity.Type) error {
	prior := ac.app.State
	next, err := ac.firstFormStageState()
	if err != nil {
		return err
	}
	if err := ac.record(code); err != nil {
		return err
	}
	if err := ac.moveTo(next); err != nil {
		return err
	}
	_, err = activity.Create(ac.tx, ac.app.Ref(), prior.StageID, prior.ApprovalLevelID, ac.actorID, activityType, nil)
	return err
}

type withdrawInApprovalsStrategy struct{}

func (s *withdrawInApprovalsStrategy) Code() action.Code {
	return action.CodeWithdrawInApprovals
}

func (s *withdrawInApprovalsStrategy) Name() string {
	return s.Code().String()
}

func (s *withdrawInApprovalsStrategy) IsActionable(it *Interactor) (bool, error) {
	if it.stage.Type != workflow.StageTypeApprovals {
		return false, nil
	}
	return it.CanWithdraw()
}

func (s *withdrawInApprovalsStrategy) Execute(ctx context.Context, app *Application, actorID types.ID) error {
	applies := func(ac *actionContext) (bool, error) {
		return ac.stage.Type == workflow.StageTypeApprovals && !ac.app.State.IsDraft, nil
	}
	return executeAction(ctx, app, actorID, s.Code(), applies, func(ac *actionContext) error {
		return sendBack(ac, s.Code(), activity.TypeWithdrawn)
	})
}

type withdrawBeforeSubmissionStrategy struct{}

func (s *withdrawBeforeSubmissionStrategy) Code() action.Code {
	return action.CodeWithdrawBeforeSubmission
}

func (s *withdrawBeforeSubmissionStrategy) Name() string {
	return s.Code().String()
}

func (s *withdrawBeforeSubmissionStrategy) IsActionable(it *Interactor) (bool, error) {
	if it.stage.Type != workflow.StageTypeFormSubmission {
		return false, nil
	}
	return it.CanWithdraw()
}

func (s *withdrawBeforeSubmissionStrategy) Execute(ctx context.Context, app *Application, actorID types.ID) error {
	applies := func(ac *actionContext) (bool, error) {
		if ac.stage.Type != workflow.StageTypeFormSubmission || ac.app.State.IsDraft {
			return false, nil
		}
		last, err := action.LastAction(ac.tx, ac.app.ID)
		if err != nil {
			return false, err
		}
		return last != nil && last.Code == action.CodeReject, nil
	}
	return executeAction(ctx, app, actorID, s.Code(), applies, func(ac *actionContext) error {
		prior := ac.app.State
		if err := ac.record(s.Code()); err != nil {
			return err
		}
		if err := ac.moveTo(state.NewApplicationState(prior.StageID, prior.IsDraft, 0)); err != nil {
			return err
		}
		_, err := activity.Create(ac.tx, ac.app.Ref(), prior.StageID, 0, actorID, activity.TypeWithdrawn, nil)
		return err
	})
}

// submitStrategy publishes the form data of the current form stage and moves the application on. No action row is
// recorded for it; the rejections that sent the application back are superseded instead.
type submitStrategy struct{}

func (s *submitStrategy) Code() action.Code {
	return action.CodeSubmit
}

func (s *submitStrategy) Name() string {
	return s.Code().String()
}

func (s *submitStrategy) IsActionable(it *Interactor) (bool, error) {
	if it.stage.Type != workflow.StageTypeFormSubmission {
		return false, nil
	}
	return it.CanEdit()
}

func (s *submitStrategy) Execute(ctx context.Context, app *Application, actorID types.ID) error {
	applies := func(ac *actionContext) (bool, error) {
		return ac.stage.Type == workflow.StageTypeFormSubmission, nil
	}
	return executeAction(ctx, app, actorID, s.Code(), applies, func(ac *actionContext) error {
		prior := ac.app.State
		sub, err := submission.FetchOrCreate(ac.tx, ac.app.ID, prior.StageID, actorID)
		if err != nil {
			return err
		}
		if err := publishSubmissionTx(ac.tx, ac.app, sub, actorID); err != nil {
			return err
		}
		if !ac.app.IsSubmitted() {
			if err := markSubmittedTx(ac.tx, ac.app, actorID); err != nil {
				return err
			}
		}
		if err := action.SupersedeCode(ac.tx, ac.app.ID, action.CodeReject); err != nil {
			return err
		}

		next, err := ac.manager.NextState(ac.ctx, ac.tx, prior)
		if err != nil {
			return err
		}
		if _, err := activity.Create(ac.tx, ac.app.Ref(), prior.StageID, 0, actorID, activity.TypeStageSubmitted, nil); err != nil {
			return err
		}
		return ac.moveTo(next)
	})
}
