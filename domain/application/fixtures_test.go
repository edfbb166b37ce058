package application_test

import (
	"approvalflow/account"
	"approvalflow/authority"
	"approvalflow/domain/activity"
	"approvalflow/domain/application"
	"approvalflow/domain/assignment"
	"approvalflow/domain/form"
	"approvalflow/domain/workflow"
	"approvalflow/event"
	"approvalflow/persistence"
	"approvalflow/testinfra"
	"context"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) (context.Context, *gorm.DB) {
	db := testinfra.StartMysqlTestDatabase("approvalflow")
	*testDatabase = db
	persistence.ActiveDataSourceManager = db.DS
	event.RelayPendingEventsFunc = func(ctx context.Context) (int, error) {
		return 0, nil
	}

	gdb := db.DS.GormDB(context.Background())
	models := append(workflow.Models(), assignment.Models()...)
	models = append(models, application.Models()...)
	models = append(models, &event.EventRecord{}, &account.User{}, &account.JobAssignment{}, &account.UserCapability{})
	Expect(gdb.AutoMigrate(models...).Error).To(BeNil())

	ctx := workflow.WithDefinitionCache(context.Background(), workflow.NewDefinitionCache(time.Minute))
	return ctx, gdb
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	event.RelayPendingEventsFunc = event.RelayPendingEvents
	persistence.ActiveDataSourceManager = nil
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

// leaveFixture is a three stage leave workflow. ann applies through a job assignment managed by bob, bob approves
// the Manager level and carol the HR level. dave is a colleague helping ann with the form.
type leaveFixture struct {
	db   *gorm.DB
	refs *workflow.DefinitionRefs
	asg  *assignment.Assignment
	job  *account.JobAssignment

	ann, bob, carol, dave *account.User
}

func newLeaveFixture(db *gorm.DB) *leaveFixture {
	refs, err := workflow.CreateDefinition(db, workflow.Definition{Type: "Leave request", Name: "Annual leave",
		Form: workflow.FormDefinition{Title: "Leave form", Plugin: form.PluginSimple},
		Stages: []workflow.StageDefinition{
			{Name: "Request", Type: workflow.StageTypeFormSubmission,
				Fields: []workflow.FieldDefinition{{Key: "reason", Required: true}, {Key: "days"}}},
			{Name: "Review", Type: workflow.StageTypeApprovals, Levels: []string{"Manager", "HR"}},
			{Name: "Done", Type: workflow.StageTypeFinished},
		}})
	Expect(err).To(BeNil())

	f := &leaveFixture{db: db, refs: refs}
	f.ann = createUser(db, "ann")
	f.bob = createUser(db, "bob")
	f.carol = createUser(db, "carol")
	f.dave = createUser(db, "dave")

	f.job, err = account.CreateJobAssignment(db, f.ann.ID, "Engineer", f.bob.ID)
	Expect(err).To(BeNil())

	f.asg, err = assignment.CreateAssignment(db, refs.Workflow.ID, "Company", 0, true)
	Expect(err).To(BeNil())
	_, err = assignment.AddApprover(db, f.asg.ID, f.level("Manager"), assignment.ApproverTypeRelationship,
		assignment.RelationshipManager)
	Expect(err).To(BeNil())
	_, err = assignment.AddApprover(db, f.asg.ID, f.level("HR"), assignment.ApproverTypeUser, f.carol.ID.String())
	Expect(err).To(BeNil())

	f.grant(f.ann, authority.CapCreateApplication)
	f.grant(f.bob, authority.CapApproveApplicationPending)
	f.grant(f.carol, authority.CapApproveApplicationPending)
	return f
}

func createUser(db *gorm.DB, name string) *account.User {
	u, err := account.CreateUser(db, &account.UserCreation{Name: name, Secret: "123456"})
	Expect(err).To(BeNil())
	return u
}

func (f *leaveFixture) grant(u *account.User, capability string) {
	Expect(account.GrantCapability(f.db, u.ID, capability, f.asg.ID.String())).To(BeNil())
}

func (f *leaveFixture) stage(name string) types.ID {
	return f.refs.StageByName(name).ID
}

func (f *leaveFixture) level(name string) types.ID {
	return f.refs.LevelByName(name).ID
}

func (f *leaveFixture) creation() *application.Creation {
	return &application.Creation{WorkflowVersionID: f.refs.Version.ID, AssignmentID: f.asg.ID, CreatorID: f.ann.ID,
		JobAssignmentID: f.job.ID}
}

func (f *leaveFixture) create(ctx context.Context) *application.Application {
	app, err := application.CreateApplication(ctx, f.creation())
	Expect(err).To(BeNil())
	return app
}

// submitted creates an application and submits it with a reason, leaving it at the Manager level.
func (f *leaveFixture) submitted(ctx context.Context) *application.Application {
	app := f.create(ctx)
	_, err := application.CreateOrUpdateSubmission(ctx, app, f.ann.ID, form.Data{"reason": "family trip", "days": 3})
	Expect(err).To(BeNil())
	f.execute(ctx, app, "submit", f.ann)
	return app
}

func (f *leaveFixture) execute(ctx context.Context, app *application.Application, name string, actor *account.User) {
	strategy, err := application.ActionStrategyByName(name)
	Expect(err).To(BeNil())
	Expect(strategy.Execute(ctx, app, actor.ID)).To(BeNil())
}

func (f *leaveFixture) actionable(ctx context.Context, app *application.Application, name string, actor *account.User) bool {
	strategy, err := application.ActionStrategyByName(name)
	Expect(err).To(BeNil())
	it, err := application.NewInteractor(ctx, app, actor.ID)
	Expect(err).To(BeNil())
	ok, err := strategy.IsActionable(it)
	Expect(err).To(BeNil())
	return ok
}

func activityTypes(db *gorm.DB, app *application.Application) []activity.Type {
	activities, err := activity.List(db, app.ID)
	Expect(err).To(BeNil())
	result := []activity.Type{}
	for _, a := range activities {
		result = append(result, a.Type)
	}
	return result
}

func eventCount(db *gorm.DB, category string) int {
	var count int
	Expect(db.Model(&event.EventRecord{}).Where("event_category = ?", category).Count(&count).Error).To(BeNil())
	return count
}
