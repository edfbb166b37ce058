package application

import (
	"approvalflow/account"
	"approvalflow/authority"
	"approvalflow/domain/action"
	"approvalflow/domain/workflow"
	"context"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// Interactor answers what a user may do with an application. Capabilities are checked in the scope of the
// application's assignment.
type Interactor struct {
	ctx context.Context
	db  *gorm.DB

	app    *Application
	userID types.ID
	perms  authority.Permissions
	stage  workflow.Stage

	pending *bool
}

// NewInteractor loads the capabilities of the user from the database.
func NewInteractor(ctx context.Context, app *Application, userID types.ID) (*Interactor, error) {
	return newInteractor(ctx, gormDB(ctx), app, userID, nil)
}

// NewInteractorWithPermissions uses capabilities already known for the user, such as those of a session.
func NewInteractorWithPermissions(ctx context.Context, app *Application, userID types.ID, perms authority.Permissions) (*Interactor, error) {
	if perms == nil {
		perms = authority.Permissions{}
	}
	return newInteractor(ctx, gormDB(ctx), app, userID, perms)
}

func newInteractor(ctx context.Context, db *gorm.DB, app *Application, userID types.ID, perms authority.Permissions) (*Interactor, error) {
	if perms == nil {
		var err error
		if perms, err = account.LoadCapabilitiesFunc(db, userID); err != nil {
			return nil, err
		}
	}
	stage, err := stageInVersion(ctx, db, app.WorkflowVersionID, app.State.StageID)
	if err != nil {
		return nil, err
	}
	return &Interactor{ctx: ctx, db: db, app: app, userID: userID, perms: perms, stage: *stage}, nil
}

func (it *Interactor) Application() *Application {
	return it.app
}

func (it *Interactor) UserID() types.ID {
	return it.userID
}

func (it *Interactor) StageType() workflow.StageType {
	return it.stage.Type
}

func (it *Interactor) has(capability string) bool {
	return it.perms.HasCapability(capability, it.app.AssignmentID)
}

func (it *Interactor) isApplicant() bool {
	return it.userID == it.app.ApplicantID
}

func (it *Interactor) isOwner() bool {
	return it.userID == it.app.OwnerID
}

func (it *Interactor) isApplicantOrOwner() bool {
	return it.isApplicant() || it.isOwner()
}

// IsPending reports whether the user is one of the approvers of the current approval level.
func (it *Interactor) IsPending() (bool, error) {
	if it.pending != nil {
		return *it.pending, nil
	}
	pending := false
	if it.app.State.HasApprovalLevel() {
		users, err := approverUsers(it.ctx, it.db, it.app, 0, true)
		if err != nil {
			return false, err
		}
		for _, u := range users {
			if u.ID == it.userID {
				pending = true
				break
			}
		}
	}
	it.pending = &pending
	return pending, nil
}

func (it *Interactor) CanCreate() bool {
	return it.has(authority.CapCreateApplication)
}

func (it *Interactor) CanView() (bool, error) {
	if it.isApplicantOrOwner() || it.has(authority.CapViewApplicationAny) {
		return true, nil
	}
	return it.IsPending()
}

func (it *Interactor) CanEdit() (bool, error) {
	if it.app.State.IsDraft || it.stage.Type == workflow.StageTypeFormSubmission {
		return it.isApplicantOrOwner() || it.has(authority.CapEditApplicationAny), nil
	}
	if it.stage.Type == workflow.StageTypeApprovals {
		return it.has(authority.CapEditInApprovalsAny) ||
			(it.isApplicant() && it.has(authority.CapEditInApprovalsApplicant)), nil
	}
	return false, nil
}

func (it *Interactor) CanDelete() bool {
	if !it.app.State.IsDraft {
		return false
	}
	return it.isOwner() || it.has(authority.CapDeleteApplicationAny) ||
		(it.isApplicant() && it.has(authority.CapDeleteApplicationApplicant))
}

func (it *Interactor) CanApprove() (bool, error) {
	if it.stage.Type != workflow.StageTypeApprovals {
		return false, nil
	}
	if it.has(authority.CapApproveApplicationAny) {
		return true, nil
	}
	if it.isApplicant() && it.has(authority.CapApproveApplicationApplicant) {
		return true, nil
	}
	if !it.has(authority.CapApproveApplicationPending) {
		return false, nil
	}
	return it.IsPending()
}

func (it *Interactor) CanWithdraw() (bool, error) {
	if it.app.State.IsDraft || it.stage.Type == workflow.StageTypeFinished {
		return false, nil
	}
	if it.stage.Type == workflow.StageTypeFormSubmission {
		last, err := action.LastAction(it.db, it.app.ID)
		if err != nil {
			return false, err
		}
		if last == nil || last.Code != action.CodeReject {
			return false, nil
		}
		return it.has(authority.CapWithdrawUnsubmittedAny) ||
			(it.isApplicantOrOwner() && it.has(authority.CapWithdrawUnsubmittedApplicant)), nil
	}
	return it.has(authority.CapWithdrawInApprovalsAny) ||
		(it.isApplicantOrOwner() && it.has(authority.CapWithdrawInApprovalsApplicant)), nil
}

func (it *Interactor) CanClone() (bool, error) {
	canView, err := it.CanView()
	if err != nil {
		return false, err
	}
	canEdit, err := it.CanEdit()
	if err != nil {
		return false, err
	}
	if !canView && !canEdit {
		return false, nil
	}
	latest, err := workflow.LatestVersion(it.db, it.app.WorkflowID)
	if err != nil {
		return false, err
	}
	return latest.IsActive() && it.CanCreate(), nil
}

// Capabilities summarises the predicates for presentation.
type Capabilities struct {
	CanView     bool `json:"canView"`
	CanEdit     bool `json:"canEdit"`
	CanDelete   bool `json:"canDelete"`
	CanApprove  bool `json:"canApprove"`
	CanWithdraw bool `json:"canWithdraw"`
	CanClone    bool `json:"canClone"`
	IsPending   bool `json:"isPending"`
}

func (it *Interactor) Capabilities() (*Capabilities, error) {
	c := Capabilities{CanDelete: it.CanDelete()}
	var err error
	if c.CanView, err = it.CanView(); err != nil {
		return nil, err
	}
	if c.CanEdit, err = it.CanEdit(); err != nil {
		return nil, err
	}
	if c.CanApprove, err = it.CanApprove(); err != nil {
		return nil, err
	}
	if c.CanWithdraw, err = it.CanWithdraw(); err != nil {
		return nil, err
	}
	if c.CanClone, err = it.CanClone(); err != nil {
		return nil, err
	}
	if c.IsPending, err = it.IsPending(); err != nil {
		return nil, err
	}
	return &c, nil
}
