package application

import (
	"approvalflow/domain/form"
	"approvalflow/domain/submission"
	"approvalflow/domain/workflow"
	"approvalflow/persistence"
	"context"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	CreateOrUpdateSubmissionFunc = CreateOrUpdateSubmission
)

func pluginOf(db *gorm.DB, app *Application) (form.Plugin, error) {
	fv, err := workflow.FindFormVersion(db, app.FormVersionID)
	if err != nil {
		return nil, err
	}
	f, err := workflow.FindForm(db, fv.FormID)
	if err != nil {
		return nil, err
	}
	return form.PluginOf(f.PluginName), nil
}

// CreateOrUpdateSubmission stores form data entered by submitterID at the current stage of the application.
func CreateOrUpdateSubmission(ctx context.Context, app *Application, submitterID types.ID, data form.Data) (*submission.Submission, error) {
	var sub *submission.Submission
	err := persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		var err error
		sub, err = createOrUpdateSubmissionTx(tx, app, submitterID, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func createOrUpdateSubmissionTx(tx *gorm.DB, app *Application, submitterID types.ID, data form.Data) (*submission.Submission, error) {
	plugin, err := pluginOf(tx, app)
	if err != nil {
		return nil, err
	}
	fields, err := workflow.StageFields(tx, app.State.StageID)
	if err != nil {
		return nil, err
	}
	filtered := plugin.FilterFields(fields, data)
	if err := plugin.Observe(app.ID, filtered); err != nil {
		return nil, err
	}

	sub, err := submission.FetchOrCreate(tx, app.ID, app.State.StageID, submitterID)
	if err != nil {
		return nil, err
	}
	if err := submission.SaveFormData(tx, sub, filtered); err != nil {
		return nil, err
	}
	return sub, nil
}

// PublishSubmission publishes a submission once its stage's required fields are filled in.
func PublishSubmission(ctx context.Context, app *Application, sub *submission.Submission, submitterID types.ID) error {
	return persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		return publishSubmissionTx(tx, app, sub, submitterID)
	})
}

func publishSubmissionTx(tx *gorm.DB, app *Application, sub *submission.Submission, submitterID types.ID) error {
	if sub.IsPublished() {
		// reports the double publication
		return submission.Publish(tx, sub, submitterID)
	}
	plugin, err := pluginOf(tx, app)
	if err != nil {
		return err
	}
	fields, err := workflow.StageFields(tx, sub.StageID)
	if err != nil {
		return err
	}
	if err := plugin.CheckReadiness(fields, sub.FormData); err != nil {
		return err
	}
	return submission.Publish(tx, sub, submitterID)
}

// SupersedeSubmissionsForStage restarts the submissions of a stage from its last data, credited to actorID.
func SupersedeSubmissionsForStage(ctx context.Context, app *Application, stageID, actorID types.ID) error {
	return persistence.InTransaction(gormDB(ctx), func(tx *gorm.DB) error {
		_, err := submission.SupersedeForStage(tx, app.ID, stageID, actorID)
		return err
	})
}
