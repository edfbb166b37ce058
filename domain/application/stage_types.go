package application

import (
	"approvalflow/bizerror"
	"approvalflow/domain/activity"
	"approvalflow/domain/state"
	"approvalflow/domain/submission"
	"approvalflow/domain/workflow"
	"context"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// StateManager drives applications through the stages of one stage type. A manager is bound to a single stage.
type StateManager interface {
	Type() workflow.StageType
	Stage() workflow.Stage

	// CreationState is the state of an application created in this stage.
	CreationState() (state.ApplicationState, error)
	// InitialState is the state of an application entering this stage.
	InitialState(ctx context.Context, tx *gorm.DB) (state.ApplicationState, error)
	NextState(ctx context.Context, tx *gorm.DB, current state.ApplicationState) (state.ApplicationState, error)
	PreviousState(ctx context.Context, tx *gorm.DB, current state.ApplicationState) (state.ApplicationState, error)

	OnApplicationStart(ctx context.Context, tx *gorm.DB, app *Application, actorID types.ID) error
	OnStateEntry(ctx context.Context, tx *gorm.DB, app *Application, prior state.ApplicationState, actorID types.ID) error
	OnStateExit(ctx context.Context, tx *gorm.DB, app *Application, next state.ApplicationState, actorID types.ID) error
}

// StateManagerOf returns the manager of the stage's type.
func StateManagerOf(stage workflow.Stage) (StateManager, error) {
	base := stageManager{stage: stage}
	switch stage.Type {
	case workflow.StageTypeFormSubmission:
		return &formSubmissionManager{base}, nil
	case workflow.StageTypeApprovals:
		return &approvalsManager{base}, nil
	case workflow.StageTypeWaiting:
		return &waitingManager{base}, nil
	case workflow.StageTypeFinished:
		return &finishedManager{base}, nil
	}
	return nil, &bizerror.ErrCoding{Message: fmt.Sprintf("unknown stage type '%s'", stage.Type)}
}

func stateManagerOfStage(ctx context.Context, tx *gorm.DB, versionID, stageID types.ID) (StateManager, error) {
	stage, err := stageInVersion(ctx, tx, versionID, stageID)
	if err != nil {
		return nil, err
	}
	return StateManagerOf(*stage)
}

func stageInVersion(ctx context.Context, tx *gorm.DB, versionID, stageID types.ID) (*workflow.Stage, error) {
	stages, err := workflow.CachedStages(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	stage := workflow.StageOf(stages, stageID)
	if stage == nil {
		return nil, &bizerror.ErrCoding{Message: fmt.Sprintf("stage %s does not belong to workflow version %s", stageID, versionID)}
	}
	return stage, nil
}

// stageManager holds the behaviour shared by all stage types.
type stageManager struct {
	stage workflow.Stage
}

func (m *stageManager) Type() workflow.StageType {
	return m.stage.Type
}

func (m *stageManager) Stage() workflow.Stage {
	return m.stage
}

func (m *stageManager) InitialState(ctx context.Context, tx *gorm.DB) (state.ApplicationState, error) {
	return state.NewApplicationState(m.stage.ID, false, 0), nil
}

func (m *stageManager) NextState(ctx context.Context, tx *gorm.DB, current state.ApplicationState) (state.ApplicationState, error) {
	return m.nextStageState(ctx, tx)
}

func (m *stageManager) PreviousState(ctx context.Context, tx *gorm.DB, current state.ApplicationState) (state.ApplicationState, error) {
	return m.previousStageState(ctx, tx)
}

func (m *stageManager) nextStageState(ctx context.Context, tx *gorm.DB) (state.ApplicationState, error) {
	stages, err := workflow.CachedStages(ctx, tx, m.stage.WorkflowVersionID)
	if err != nil {
		return state.ApplicationState{}, err
	}
	next := workflow.NextStage(stages, m.stage.ID)
	if next == nil {
		return state.ApplicationState{}, &bizerror.ErrCoding{Message: "No next stage"}
	}
	return initialStateOf(ctx, tx, *next)
}

func (m *stageManager) previousStageState(ctx context.Context, tx *gorm.DB) (state.ApplicationState, error) {
	stages, err := workflow.CachedStages(ctx, tx, m.stage.WorkflowVersionID)
	if err != nil {
		return state.ApplicationState{}, err
	}
	var previous *workflow.Stage
	for i := range stages {
		if stages[i].ID == m.stage.ID {
			break
		}
		previous = &stages[i]
	}
	if previous == nil {
		return state.ApplicationState{}, &bizerror.ErrCoding{Message: "No previous stage"}
	}
	return initialStateOf(ctx, tx, *previous)
}

func initialStateOf(ctx context.Context, tx *gorm.DB, stage workflow.Stage) (state.ApplicationState, error) {
	manager, err := StateManagerOf(stage)
	if err != nil {
		return state.ApplicationState{}, err
	}
	return manager.InitialState(ctx, tx)
}

func (m *stageManager) record(tx *gorm.DB, app *Application, levelID, actorID types.ID, t activity.Type) error {
	_, err := activity.Create(tx, app.Ref(), m.stage.ID, levelID, actorID, t, nil)
	return err
}

type formSubmissionManager struct {
	stageManager
}

func (m *formSubmissionManager) CreationState() (state.ApplicationState, error) {
	return state.NewApplicationState(m.stage.ID, true, 0), nil
}

func (m *formSubmissionManager) OnApplicationStart(ctx context.Context, tx *gorm.DB, app *Application, actorID types.ID) error {
	return m.record(tx, app, 0, actorID, activity.TypeStageStarted)
}

// OnStateEntry reopens the stage's submission as a draft when the application comes back to the stage.
func (m *formSubmissionManager) OnStateEntry(ctx context.Context, tx *gorm.DB, app *Application, prior state.ApplicationState, actorID types.ID) error {
	if !prior.IsStage(m.stage.ID) {
		if _, err := submission.SupersedeForStage(tx, app.ID, m.stage.ID, actorID); err != nil {
			return err
		}
	}
	return m.record(tx, app, 0, actorID, activity.TypeStageStarted)
}

func (m *formSubmissionManager) OnStateExit(ctx context.Context, tx *gorm.DB, app *Application, next state.ApplicationState, actorID types.ID) error {
	return m.record(tx, app, 0, actorID, activity.TypeStageEnded)
}

type approvalsManager struct {
	stageManager
}

func (m *approvalsManager) CreationState() (state.ApplicationState, error) {
	return state.ApplicationState{}, &bizerror.ErrCoding{Message: "An application can not start in an approval stage"}
}

func (m *approvalsManager) InitialState(ctx context.Context, tx *gorm.DB) (state.ApplicationState, error) {
	levels, err := workflow.CachedLevels(ctx, tx, m.stage.ID)
	if err != nil {
		return state.ApplicationState{}, err
	}
	if len(levels) == 0 {
		return state.ApplicationState{}, &bizerror.ErrCoding{Message: fmt.Sprintf("approval stage %s has no approval levels", m.stage.ID)}
	}
	return state.NewApplicationState(m.stage.ID, false, levels[0].ID), nil
}

func (m *approvalsManager) NextState(ctx context.Context, tx *gorm.DB, current state.ApplicationState) (state.ApplicationState, error) {
	levels, err := workflow.CachedLevels(ctx, tx, m.stage.ID)
	if err != nil {
		return state.ApplicationState{}, err
	}
	if next := workflow.NextLevel(levels, current.ApprovalLevelID); next != nil {
		return state.NewApplicationState(m.stage.ID, false, next.ID), nil
	}
	return m.nextStageState(ctx, tx)
}

func (m *approvalsManager) PreviousState(ctx context.Context, tx *gorm.DB, current state.ApplicationState) (state.ApplicationState, error) {
	levels, err := workflow.CachedLevels(ctx, tx, m.stage.ID)
	if err != nil {
		return state.ApplicationState{}, err
	}
	for i := 1; i < len(levels); i++ {
		if levels[i].ID == current.ApprovalLevelID {
			return state.NewApplicationState(m.stage.ID, false, levels[i-1].ID), nil
		}
	}
	return m.previousStageState(ctx, tx)
}

func (m *approvalsManager) OnApplicationStart(ctx context.Context, tx *gorm.DB, app *Application, actorID types.ID) error {
	return &bizerror.ErrCoding{Message: "An application can not start in an approval stage"}
}

func (m *approvalsManager) OnStateEntry(ctx context.Context, tx *gorm.DB, app *Application, prior state.ApplicationState, actorID types.ID) error {
	if !prior.IsStage(m.stage.ID) {
		if err := m.record(tx, app, 0, actorID, activity.TypeStageStarted); err != nil {
			return err
		}
	}
	if app.State.HasApprovalLevel() {
		return m.record(tx, app, app.State.ApprovalLevelID, actorID, activity.TypeLevelStarted)
	}
	return nil
}

func (m *approvalsManager) OnStateExit(ctx context.Context, tx *gorm.DB, app *Application, next state.ApplicationState, actorID types.ID) error {
	if app.State.HasApprovalLevel() {
		if err := m.record(tx, app, app.State.ApprovalLevelID, actorID, activity.TypeLevelEnded); err != nil {
			return err
		}
	}
	if !next.IsStage(m.stage.ID) {
		return m.record(tx, app, 0, actorID, activity.TypeStageEnded)
	}
	return nil
}

type waitingManager struct {
	stageManager
}

func (m *waitingManager) CreationState() (state.ApplicationState, error) {
	return state.ApplicationState{}, &bizerror.ErrCoding{Message: "An application can not start in a waiting stage"}
}

func (m *waitingManager) OnApplicationStart(ctx context.Context, tx *gorm.DB, app *Application, actorID types.ID) error {
	return &bizerror.ErrCoding{Message: "An application can not start in a waiting stage"}
}

func (m *waitingManager) OnStateEntry(ctx context.Context, tx *gorm.DB, app *Application, prior state.ApplicationState, actorID types.ID) error {
	return m.record(tx, app, 0, actorID, activity.TypeStageStarted)
}

func (m *waitingManager) OnStateExit(ctx context.Context, tx *gorm.DB, app *Application, next state.ApplicationState, actorID types.ID) error {
	return m.record(tx, app, 0, actorID, activity.TypeStageEnded)
}

type finishedManager struct {
	stageManager
}

func (m *finishedManager) CreationState() (state.ApplicationState, error) {
	return state.ApplicationState{}, &bizerror.ErrCoding{Message: "An application can not start in a finished stage"}
}

func (m *finishedManager) NextState(ctx context.Context, tx *gorm.DB, current state.ApplicationState) (state.ApplicationState, error) {
	return state.ApplicationState{}, &bizerror.ErrCoding{Message: "No next stage"}
}

func (m *finishedManager) OnApplicationStart(ctx context.Context, tx *gorm.DB, app *Application, actorID types.ID) error {
	return &bizerror.ErrCoding{Message: "An application can not start in a finished stage"}
}

func (m *finishedManager) OnStateEntry(ctx context.Context, tx *gorm.DB, app *Application, prior state.ApplicationState, actorID types.ID) error {
	if err := markCompletedTx(tx, app); err != nil {
		return err
	}
	return m.record(tx, app, 0, actorID, activity.TypeFinished)
}

func (m *finishedManager) OnStateExit(ctx context.Context, tx *gorm.DB, app *Application, next state.ApplicationState, actorID types.ID) error {
	return nil
}
