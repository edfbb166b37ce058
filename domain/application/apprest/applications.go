package apprest

import (
	"approvalflow/account"
	"approvalflow/authority"
	"approvalflow/bizerror"
	"approvalflow/domain/activity"
	"approvalflow/domain/application"
	"approvalflow/domain/form"
	"approvalflow/domain/submission"
	"approvalflow/persistence"
	"approvalflow/session"
	"io"

	"github.com/fundwit/go-commons/types"
)

var (
	CreateApplicationFunc = CreateApplication
	DetailApplicationFunc = DetailApplication
	DeleteApplicationFunc = DeleteApplication
	CloneApplicationFunc  = CloneApplication
	SaveSubmissionFunc    = SaveSubmission
	TakeActionFunc        = TakeAction
	QueryApproversFunc    = QueryApprovers
	QueryActivitiesFunc   = QueryActivities
	UploadAttachmentFunc  = UploadAttachment
	ListAttachmentsFunc   = ListAttachments
	OpenAttachmentFunc    = OpenAttachment
)

// ApplicationDetail is an application as seen by the requesting user.
type ApplicationDetail struct {
	application.Application

	OverallProgress string                   `json:"overallProgress"`
	YourProgress    string                   `json:"yourProgress"`
	Capabilities    application.Capabilities `json:"capabilities"`
}

type ActionRequest struct {
	Action string `json:"action" binding:"required"`
}

type ApproversQuery struct {
	LevelID types.ID `form:"levelId"`
}

func interactorOf(id types.ID, s *session.Session) (*application.Interactor, error) {
	app, err := application.FindApplicationFunc(s.Ctx(), id)
	if err != nil {
		return nil, err
	}
	return application.NewInteractorWithPermissions(s.Ctx(), app, s.Identity.ID, s.Perms)
}

func CreateApplication(c *application.Creation, s *session.Session) (*application.Application, error) {
	if !s.Perms.HasCapability(authority.CapCreateApplication, c.AssignmentID) {
		return nil, bizerror.ErrForbidden
	}
	c.CreatorID = s.Identity.ID
	c.SourceID = 0
	return application.CreateApplicationFunc(s.Ctx(), c)
}

func DetailApplication(id types.ID, s *session.Session) (*ApplicationDetail, error) {
	it, err := interactorOf(id, s)
	if err != nil {
		return nil, err
	}
	caps, err := it.Capabilities()
	if err != nil {
		return nil, err
	}
	if !caps.CanView {
		return nil, bizerror.ErrForbidden
	}
	overall, err := application.OverallProgress(s.Ctx(), persistence.ActiveDataSourceManager.GormDB(s.Ctx()), it.Application())
	if err != nil {
		return nil, err
	}
	yours, err := application.YourProgress(it)
	if err != nil {
		return nil, err
	}
	return &ApplicationDetail{Application: *it.Application(), OverallProgress: overall, YourProgress: yours,
		Capabilities: *caps}, nil
}

func DeleteApplication(id types.ID, s *session.Session) error {
	it, err := interactorOf(id, s)
	if err != nil {
		return err
	}
	if !it.CanDelete() {
		return bizerror.ErrForbidden
	}
	return application.DeleteApplicationFunc(s.Ctx(), it.Application(), false)
}

func CloneApplication(id types.ID, s *session.Session) (*application.Application, error) {
	it, err := interactorOf(id, s)
	if err != nil {
		return nil, err
	}
	can, err := it.CanClone()
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, bizerror.ErrForbidden
	}
	return application.CloneApplicationFunc(s.Ctx(), it.Application(), s.Identity.ID)
}

func SaveSubmission(id types.ID, data form.Data, s *session.Session) (*submission.Submission, error) {
	it, err := interactorOf(id, s)
	if err != nil {
		return nil, err
	}
	can, err := it.CanEdit()
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, bizerror.ErrForbidden
	}
	return application.CreateOrUpdateSubmissionFunc(s.Ctx(), it.Application(), s.Identity.ID, data)
}

func TakeAction(id types.ID, req *ActionRequest, s *session.Session) (*application.Application, error) {
	strategy, err := application.ActionStrategyByName(req.Action)
	if err != nil {
		return nil, err
	}
	it, err := interactorOf(id, s)
	if err != nil {
		return nil, err
	}
	actionable, err := strategy.IsActionable(it)
	if err != nil {
		return nil, err
	}
	if !actionable {
		return nil, bizerror.ErrForbidden
	}
	app := it.Application()
	if err := strategy.Execute(s.Ctx(), app, s.Identity.ID); err != nil {
		return nil, err
	}
	return app, nil
}

func QueryApprovers(id types.ID, q *ApproversQuery, s *session.Session) ([]account.User, error) {
	it, err := viewable(id, s)
	if err != nil {
		return nil, err
	}
	return application.GetApproverUsersFunc(s.Ctx(), it.Application(), q.LevelID, false)
}

func QueryActivities(id types.ID, s *session.Session) ([]activity.Activity, error) {
	if _, err := viewable(id, s); err != nil {
		return nil, err
	}
	return activity.List(persistence.ActiveDataSourceManager.GormDB(s.Ctx()), id)
}

// viewable loads the application for a reader of it.
func viewable(id types.ID, s *session.Session) (*application.Interactor, error) {
	it, err := interactorOf(id, s)
	if err != nil {
		return nil, err
	}
	can, err := it.CanView()
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, bizerror.ErrForbidden
	}
	return it, nil
}

func UploadAttachment(id types.ID, name string, r io.Reader, s *session.Session) (*application.Attachment, error) {
	it, err := interactorOf(id, s)
	if err != nil {
		return nil, err
	}
	can, err := it.CanEdit()
	if err != nil {
		return nil, err
	}
	if !can {
		return nil, bizerror.ErrForbidden
	}
	return application.UploadAttachmentFunc(s.Ctx(), it.Application(), s.Identity.ID, name, r)
}

func ListAttachments(id types.ID, s *session.Session) ([]application.Attachment, error) {
	it, err := viewable(id, s)
	if err != nil {
		return nil, err
	}
	return application.ListAttachmentsFunc(s.Ctx(), it.Application())
}

func OpenAttachment(id types.ID, key string, s *session.Session) (io.ReadCloser, error) {
	it, err := viewable(id, s)
	if err != nil {
		return nil, err
	}
	return application.OpenAttachmentFunc(s.Ctx(), it.Application(), key)
}
