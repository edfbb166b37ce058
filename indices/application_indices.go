package indices

import (
	"approvalflow/client/es"
	"approvalflow/domain/application"
	"approvalflow/domain/workflow"
	"approvalflow/persistence"
	"context"
	"fmt"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	ApplicationIndexName = "applications"

	BuildDocumentFunc = BuildDocument
)

// ApplicationDocument is the searchable projection of an application.
type ApplicationDocument struct {
	ID           types.ID `json:"id"`
	IDNumber     string   `json:"idNumber"`
	Title        string   `json:"title"`
	WorkflowID   types.ID `json:"workflowId"`
	AssignmentID types.ID `json:"assignmentId"`
	ApplicantID  types.ID `json:"applicantId"`
	OwnerID      types.ID `json:"ownerId"`

	StageID   types.ID `json:"stageId"`
	StageName string   `json:"stage"`
	LevelID   types.ID `json:"levelId"`
	LevelName string   `json:"level"`
	IsDraft   bool     `json:"isDraft"`

	OverallProgress string `json:"overallProgress"`

	CreateTime   types.Timestamp `json:"createTime"`
	UpdateTime   types.Timestamp `json:"updateTime"`
	SubmitTime   types.Timestamp `json:"submitTime"`
	CompleteTime types.Timestamp `json:"completeTime"`
}

var ApplicationIndexMapping = es.H{
	"mappings": es.H{
		"properties": es.H{
			"id":              es.H{"type": "keyword"},
			"idNumber":        es.H{"type": "keyword"},
			"title":           es.H{"type": "text"},
			"workflowId":      es.H{"type": "keyword"},
			"assignmentId":    es.H{"type": "keyword"},
			"applicantId":     es.H{"type": "keyword"},
			"ownerId":         es.H{"type": "keyword"},
			"stageId":         es.H{"type": "keyword"},
			"stage":           es.H{"type": "keyword"},
			"levelId":         es.H{"type": "keyword"},
			"level":           es.H{"type": "keyword"},
			"isDraft":         es.H{"type": "boolean"},
			"overallProgress": es.H{"type": "keyword"},
			"createTime":      es.H{"type": "date"},
			"updateTime":      es.H{"type": "date"},
			"submitTime":      es.H{"type": "date"},
			"completeTime":    es.H{"type": "date"},
		},
	},
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

// BuildDocument resolves the stage and level names and the overall progress of the application.
func BuildDocument(ctx context.Context, app *application.Application) (*ApplicationDocument, error) {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	doc := ApplicationDocument{
		ID: app.ID, IDNumber: app.IDNumber, Title: app.Title, WorkflowID: app.WorkflowID, AssignmentID: app.AssignmentID,
		ApplicantID: app.ApplicantID, OwnerID: app.OwnerID,
		StageID: app.State.StageID, LevelID: app.State.ApprovalLevelID, IsDraft: app.State.IsDraft,
		CreateTime: app.CreateTime, UpdateTime: app.UpdateTime, SubmitTime: app.SubmitTime, CompleteTime: app.CompleteTime,
	}

	stages, err := workflow.CachedStages(ctx, db, app.WorkflowVersionID)
	if err != nil {
		return nil, err
	}
	for _, s := range stages {
		if s.ID == app.State.StageID {
			doc.StageName = s.Name
		}
	}
	if app.State.ApprovalLevelID != 0 {
		levels, err := workflow.CachedLevels(ctx, db, app.State.StageID)
		if err != nil {
			return nil, err
		}
		for _, l := range levels {
			if l.ID == app.State.ApprovalLevelID {
				doc.LevelName = l.Name
			}
		}
	}

	if doc.OverallProgress, err = application.OverallProgress(ctx, db, app); err != nil {
		return nil, err
	}
	return &doc, nil
}

// IndexApplications indexes every application it can and reports the failures per application.
func IndexApplications(ctx context.Context, apps []application.Application) error {
	errs := BatchActionError{}
	for i := range apps {
		app := &apps[i]
		doc, err := BuildDocumentFunc(ctx, app)
		if err == nil {
			err = es.IndexFunc(ctx, ApplicationIndexName, app.ID, doc)
		}
		if err != nil {
			errs[app.ID] = err
			logrus.Warnf("index application %d %s: %v", app.ID, app.IDNumber, err)
		} else {
			logrus.Debugf("index application %d %s successfully", app.ID, app.IDNumber)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
