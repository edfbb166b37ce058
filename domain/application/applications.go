package application

import (
	"approvalflow/account"
	"approvalflow/bizerror"
	"approvalflow/domain/action"
	"approvalflow/domain/activity"
	"approvalflow/domain/assignment"
	"approvalflow/domain/submission"
	"approvalflow/domain/workflow"
	"approvalflow/event"
	"approvalflow/idgen"
	"approvalflow/persistence"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

const (
	idNumberMaxLength  = 255
	idNumberTimeLayout = "20060102150405"
	idNumberAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var (
	applicationIdWorker = idgen.NewWorker()

	CreateApplicationFunc = CreateApplication
	FindApplicationFunc   = FindApplication
	LoadApplicationsFunc  = LoadApplications
	DeleteApplicationFunc = DeleteApplication
	CloneApplicationFunc  = CloneApplication
	ChangeStateFunc       = ChangeState
)

func gormDB(ctx context.Context) *gorm.DB {
	return persistence.ActiveDataSourceManager.GormDB(ctx)
}

// afterCommit pushes the outbox events of a committed change to the event handlers.
func afterCommit() {
	event.TriggerRelay()
}

func Models() []interface{} {
	return []interface{}{&Application{}, &submission.Submission{}, &action.Action{}, &activity.Activity{}}
}

func FindApplication(ctx context.Context, id types.ID) (*Application, error) {
	return findApplication(gormDB(ctx), id)
}

func findApplication(db *gorm.DB, id types.ID) (*Application, error) {
	app := Application{}
	if err := db.Where("id = ?", id).First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

// LoadApplications pages over the applications in id order, admin previews excluded. Pages start at 1.
func LoadApplications(ctx context.Context, page, size int) ([]Application, error) {
	if page < 1 {
		page = 1
	}
	apps := []Application{}
	err := gormDB(ctx).Where("is_preview = ?", false).Order("id ASC").Offset((page - 1) * size).Limit(size).
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// lockApplication reloads the application row and locks it until tx ends.
func lockApplication(tx *gorm.DB, id types.ID) (*Application, error) {
	return findApplication(persistence.ForUpdate(tx), id)
}

// BuildIDNumber derives the reference number of an application: the workflow type name, the creation time and four
// letters hashed from the type name keyed with the application id. The name is cut so that the result never exceeds
// 255 bytes.
func BuildIDNumber(typeName string, id types.ID, t time.Time) string {
	mac := hmac.New(sha512.New, []byte(fmt.Sprintf("%x", uint64(id))))
	mac.Write([]byte(typeName))
	sum := mac.Sum(nil)

	v := int(sum[0]) + 256*int(sum[1]) + 65536*int(sum[2])
	suffix := make([]byte, 0, 4)
	for i := 0; i < 4; i++ {
		suffix = append(suffix, idNumberAlphabet[v%26])
		v /= 26
	}

	ts := t.Format(idNumberTimeLayout)
	name := typeName
	if max := idNumberMaxLength - len(ts) - len(suffix); len(name) > max {
		name = name[:max]
		for len(name) > 0 && !utf8.ValidString(name) {
			name = name[:len(name)-1]
		}
	}
	return name + ts + string(suffix)
}

// CreateApplication starts a new application in the first stage of an active workflow version.
func CreateApplication(ctx context.Context, c *Creation) (*Application, error) {
	var app *Application
	err := persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		var err error
		app, err = CreateApplicationTx(ctx, tx, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	afterCommit()
	return app, nil
}

// CreateApplicationTx is CreateApplication on the caller's transaction.
func CreateApplicationTx(ctx context.Context, tx *gorm.DB, c *Creation) (*Application, error) {
	version, err := workflow.FindVersion(tx, c.WorkflowVersionID)
	if err != nil {
		return nil, err
	}
	if !version.IsActive() {
		return nil, &bizerror.ErrPrecondition{Message: "Workflow version is not active"}
	}
	formVersion, err := workflow.FindFormVersion(tx, version.FormVersionID)
	if err != nil {
		return nil, err
	}
	if !formVersion.IsActive() {
		return nil, &bizerror.ErrPrecondition{Message: "Form version is not active"}
	}
	asg, err := assignment.FindAssignment(tx, c.AssignmentID)
	if err != nil {
		return nil, err
	}
	if !asg.IsActive() {
		return nil, &bizerror.ErrPrecondition{Message: "Assignment is not active"}
	}

	app, manager, err := insertApplication(ctx, tx, c, version, asg, false)
	if err != nil {
		return nil, err
	}

	info := activity.Info{}
	if c.SourceID != 0 {
		info["source"] = c.SourceID.String()
	}
	if _, err := activity.Create(tx, app.Ref(), app.State.StageID, 0, c.CreatorID, activity.TypeCreation, info); err != nil {
		return nil, err
	}
	if err := manager.OnApplicationStart(ctx, tx, app, c.CreatorID); err != nil {
		return nil, err
	}

	if _, err := event.CreateEvent(activity.EventSourceApplication, app.ID, app.IDNumber, event.EventCategoryCreated,
		event.Payload{"workflowVersionId": app.WorkflowVersionID.String()}, nil, app.CreateTime, tx); err != nil {
		return nil, err
	}
	return findApplication(tx, app.ID)
}

// CreateAdminPreview creates an application for previewing a workflow version regardless of the status of the
// version, form version and assignment. No activity is recorded. Callers delete the preview when done.
func CreateAdminPreview(ctx context.Context, c *Creation) (*Application, error) {
	var app *Application
	err := persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		version, err := workflow.FindVersion(tx, c.WorkflowVersionID)
		if err != nil {
			return err
		}
		asg, err := assignment.FindAssignment(tx, c.AssignmentID)
		if err != nil {
			return err
		}
		app, _, err = insertApplication(ctx, tx, c, version, asg, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

func insertApplication(ctx context.Context, tx *gorm.DB, c *Creation, version *workflow.WorkflowVersion,
	asg *assignment.Assignment, preview bool) (*Application, StateManager, error) {

	applicantID := c.ApplicantID
	if applicantID == 0 {
		applicantID = c.CreatorID
	}
	if c.JobAssignmentID != 0 {
		ja, err := account.FindJobAssignment(tx, c.JobAssignmentID)
		if err != nil {
			return nil, nil, err
		}
		if ja.UserID != applicantID {
			return nil, nil, &bizerror.ErrPrecondition{Message: "Job assignment belongs to other user"}
		}
	}

	wf, err := workflow.FindWorkflow(tx, version.WorkflowID)
	if err != nil {
		return nil, nil, err
	}
	workflowType, err := workflow.FindWorkflowType(tx, wf.WorkflowTypeID)
	if err != nil {
		return nil, nil, err
	}

	stages, err := workflow.CachedStages(ctx, tx, version.ID)
	if err != nil {
		return nil, nil, err
	}
	first := workflow.FirstStage(stages)
	if first == nil {
		return nil, nil, &bizerror.ErrPrecondition{Message: "Workflow version has no stages"}
	}
	manager, err := StateManagerOf(*first)
	if err != nil {
		return nil, nil, err
	}
	startState, err := manager.CreationState()
	if err != nil {
		return nil, nil, err
	}

	title := c.Title
	if title == "" {
		title = workflowType.Name
	}
	now := types.CurrentTimestamp()
	app := Application{
		ID:                idgen.NextID(applicationIdWorker),
		Title:             title,
		WorkflowID:        wf.ID,
		WorkflowVersionID: version.ID,
		FormVersionID:     version.FormVersionID,
		AssignmentID:      asg.ID,
		ApplicantID:       applicantID,
		JobAssignmentID:   c.JobAssignmentID,
		CreatorID:         c.CreatorID,
		OwnerID:           c.CreatorID,
		CreateTime:        now,
		UpdateTime:        now,
		State:             startState,
		IsPreview:         preview,
	}
	app.IDNumber = BuildIDNumber(workflowType.Name, app.ID, now.Time())
	if err := tx.Create(&app).Error; err != nil {
		return nil, nil, err
	}
	logrus.Debugf("application %s (%s) created in %s", app.ID, app.IDNumber, app.State)
	return &app, manager, nil
}

// MarkSubmitted records the first submission of the application.
func MarkSubmitted(ctx context.Context, app *Application, submitterID types.ID) error {
	return persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		return markSubmittedTx(tx, app, submitterID)
	})
}

func markSubmittedTx(tx *gorm.DB, app *Application, submitterID types.ID) error {
	if app.IsSubmitted() {
		return &bizerror.ErrCoding{Message: "Application has already been submitted"}
	}
	now := types.CurrentTimestamp()
	err := tx.Model(&Application{}).Where("id = ?", app.ID).
		Updates(map[string]interface{}{"submit_time": now, "submitter_id": submitterID, "update_time": now}).Error
	if err != nil {
		return err
	}
	return refresh(tx, app)
}

// MarkCompleted stamps the completion time. Completing again moves the time forward.
func MarkCompleted(ctx context.Context, app *Application) error {
	return persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		return markCompletedTx(tx, app)
	})
}

func markCompletedTx(tx *gorm.DB, app *Application) error {
	now := types.CurrentTimestamp()
	err := tx.Model(&Application{}).Where("id = ?", app.ID).
		Updates(map[string]interface{}{"complete_time": now, "update_time": now}).Error
	if err != nil {
		return err
	}
	return refresh(tx, app)
}

func refresh(db *gorm.DB, app *Application) error {
	fresh, err := findApplication(db, app.ID)
	if err != nil {
		return err
	}
	*app = *fresh
	return nil
}

// DeleteApplication removes a draft application with its unsubmitted submissions and its activities. With force
// the application is removed in any state together with all submissions, actions and activities.
func DeleteApplication(ctx context.Context, app *Application, force bool) error {
	err := persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		current, err := lockApplication(tx, app.ID)
		if err != nil {
			return err
		}
		if !force && !current.State.IsDraft {
			return &bizerror.ErrCoding{Message: "Cannot delete non-draft application"}
		}
		if force {
			if err := submission.DeleteAll(tx, app.ID); err != nil {
				return err
			}
			if err := action.DeleteAll(tx, app.ID); err != nil {
				return err
			}
		} else if err := submission.DeleteUnpublished(tx, app.ID); err != nil {
			return err
		}
		if err := activity.DeleteAll(tx, app.ID); err != nil {
			return err
		}
		if err := tx.Where("id = ?", app.ID).Delete(&Application{}).Error; err != nil {
			return err
		}
		_, err = event.CreateEvent(activity.EventSourceApplication, app.ID, current.IDNumber, event.EventCategoryDeleted,
			event.Payload{"force": force}, nil, types.CurrentTimestamp(), tx)
		return err
	})
	if err != nil {
		return err
	}
	afterCommit()
	return nil
}

// CloneApplication creates a new application on the active version of the source's workflow, seeded with the
// latest submission of the source's first stage.
func CloneApplication(ctx context.Context, source *Application, clonerID types.ID) (*Application, error) {
	var cloned *Application
	err := persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		var err error
		cloned, err = CloneApplicationTx(ctx, tx, source, clonerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	afterCommit()
	return cloned, nil
}

// CloneApplicationTx is CloneApplication on the caller's transaction. Nothing is committed.
func CloneApplicationTx(ctx context.Context, tx *gorm.DB, source *Application, clonerID types.ID) (*Application, error) {
	src, err := findApplication(tx, source.ID)
	if err != nil {
		return nil, err
	}
	active, err := workflow.ActiveVersion(tx, src.WorkflowID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, &bizerror.ErrPrecondition{Message: "Workflow has no active version"}
	}

	cloned, err := CreateApplicationTx(ctx, tx, &Creation{
		WorkflowVersionID: active.ID,
		AssignmentID:      src.AssignmentID,
		CreatorID:         clonerID,
		ApplicantID:       src.ApplicantID,
		JobAssignmentID:   src.JobAssignmentID,
		Title:             src.Title,
		SourceID:          src.ID,
	})
	if err != nil {
		return nil, err
	}

	srcStages, err := workflow.CachedStages(ctx, tx, src.WorkflowVersionID)
	if err != nil {
		return nil, err
	}
	srcFirst := workflow.FirstStage(srcStages)
	if srcFirst == nil {
		return cloned, nil
	}
	last, err := submission.LastSubmissionFor(tx, src.ID, srcFirst.ID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return cloned, nil
	}

	plugin, err := pluginOf(tx, cloned)
	if err != nil {
		return nil, err
	}
	data, err := plugin.CloneFormData(ctx, last.FormData, cloned.ID)
	if err != nil {
		return nil, err
	}
	if _, err := submission.Clone(tx, last, cloned.ID, cloned.State.StageID, data); err != nil {
		return nil, err
	}
	return cloned, nil
}
