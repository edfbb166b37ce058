package assignment_test

import (
	"approvalflow/account"
	"approvalflow/bizerror"
	"approvalflow/domain/assignment"
	"approvalflow/domain/workflow"
	"approvalflow/testinfra"
	"context"
	"testing"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) *gorm.DB {
	db := testinfra.StartMysqlTestDatabase("approvalflow")
	*testDatabase = db
	gdb := db.DS.GormDB(context.Background())
	models := append(workflow.Models(), assignment.Models()...)
	models = append(models, &account.User{}, &account.JobAssignment{})
	Expect(gdb.AutoMigrate(models...).Error).To(BeNil())
	return gdb
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func twoLevelWorkflow(db *gorm.DB) *workflow.DefinitionRefs {
	refs, err := workflow.CreateDefinition(db, workflow.Definition{Type: "Expense", Name: "Expense claim",
		Stages: []workflow.StageDefinition{
			{Name: "Claim", Type: workflow.StageTypeFormSubmission},
			{Name: "Review", Type: workflow.StageTypeApprovals, Levels: []string{"L1", "L2"}},
			{Name: "Done", Type: workflow.StageTypeFinished},
		}})
	Expect(err).To(BeNil())
	return refs
}

func TestApproversWithInheritance(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should inherit approvers from ancestors and the default assignment", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		refs := twoLevelWorkflow(db)
		l1, l2 := refs.LevelByName("L1").ID, refs.LevelByName("L2").ID

		def, err := assignment.CreateAssignment(db, refs.Workflow.ID, "Company", 0, true)
		Expect(err).To(BeNil())
		dept, err := assignment.CreateAssignment(db, refs.Workflow.ID, "Sales", 0, false)
		Expect(err).To(BeNil())
		team, err := assignment.CreateAssignment(db, refs.Workflow.ID, "Sales EMEA", dept.ID, false)
		Expect(err).To(BeNil())

		_, err = assignment.AddApprover(db, def.ID, l1, assignment.ApproverTypeUser, "100")
		Expect(err).To(BeNil())
		_, err = assignment.AddApprover(db, def.ID, l2, assignment.ApproverTypeUser, "200")
		Expect(err).To(BeNil())
		deptL1, err := assignment.AddApprover(db, dept.ID, l1, assignment.ApproverTypeRelationship, assignment.RelationshipManager)
		Expect(err).To(BeNil())

		approvers, err := assignment.ApproversWithInheritance(db, team.ID, l1)
		Expect(err).To(BeNil())
		Expect(len(approvers)).To(Equal(1))
		Expect(approvers[0].ID).To(Equal(deptL1.ID))

		approvers, err = assignment.ApproversWithInheritance(db, team.ID, l2)
		Expect(err).To(BeNil())
		Expect(len(approvers)).To(Equal(1))
		Expect(approvers[0].Identifier).To(Equal("200"))

		Expect(assignment.DeactivateApprover(db, deptL1.ID)).To(BeNil())
		approvers, err = assignment.ApproversWithInheritance(db, team.ID, l1)
		Expect(err).To(BeNil())
		Expect(approvers[0].Identifier).To(Equal("100"))
	})

	t.Run("default assignment without approvers should resolve nothing", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		refs := twoLevelWorkflow(db)

		def, err := assignment.CreateAssignment(db, refs.Workflow.ID, "Company", 0, true)
		Expect(err).To(BeNil())
		approvers, err := assignment.ApproversWithInheritance(db, def.ID, refs.Levels[0].ID)
		Expect(err).To(BeNil())
		Expect(approvers).To(BeEmpty())
	})

	t.Run("should reject unknown approver kinds", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		_, err := assignment.AddApprover(db, 1, 2, "cohort", "x")
		Expect(err).To(Equal(&bizerror.ErrInvalidInput{Field: "type", Message: "unknown approver type 'cohort'"}))
		_, err = assignment.AddApprover(db, 1, 2, assignment.ApproverTypeRelationship, "peer")
		Expect(err).To(Equal(&bizerror.ErrInvalidInput{Field: "identifier", Message: "unknown relationship 'peer'"}))
	})
}

func TestResolveApprovers(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should resolve users and managers", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		applicant, err := account.CreateUser(db, &account.UserCreation{Name: "applicant", Secret: "123456"})
		Expect(err).To(BeNil())
		ja1, err := account.CreateJobAssignment(db, applicant.ID, "dev", 501)
		Expect(err).To(BeNil())
		_, err = account.CreateJobAssignment(db, applicant.ID, "ops", 502)
		Expect(err).To(BeNil())

		approvers := []assignment.Approver{
			{Type: assignment.ApproverTypeUser, Identifier: "900"},
			{Type: assignment.ApproverTypeRelationship, Identifier: assignment.RelationshipManager},
			{Type: assignment.ApproverTypeUser, Identifier: "501"},
		}

		ids, err := assignment.ResolveApprovers(db, approvers, applicant.ID, ja1.ID)
		Expect(err).To(BeNil())
		Expect(ids).To(Equal([]types.ID{501, 900}))

		ids, err = assignment.ResolveApprovers(db, approvers, applicant.ID, 0)
		Expect(err).To(BeNil())
		Expect(ids).To(Equal([]types.ID{501, 502, 900}))

		ids, err = assignment.ResolveApprovers(db, nil, applicant.ID, 0)
		Expect(err).To(BeNil())
		Expect(ids).To(BeEmpty())
	})
}

func TestCreateFromDefinition(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should persist the assignment tree", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		refs := twoLevelWorkflow(db)
		boss, err := account.CreateUser(db, &account.UserCreation{Name: "boss", Secret: "123456"})
		Expect(err).To(BeNil())

		created, err := assignment.CreateFromDefinition(db, refs, []workflow.AssignmentDefinition{
			{Name: "Company", Default: true, Approvers: map[string][]workflow.ApproverDefinition{
				"L1": {{Type: assignment.ApproverTypeRelationship, Identifier: assignment.RelationshipManager}},
				"L2": {{Type: assignment.ApproverTypeUser, Identifier: "boss"}},
			}},
			{Name: "Sales", Parent: "Company"},
		})
		Expect(err).To(BeNil())
		Expect(len(created)).To(Equal(2))
		Expect(created[0].IsDefault).To(BeTrue())
		Expect(created[1].ParentID).To(Equal(created[0].ID))
		Expect(created[1].IsActive()).To(BeTrue())

		approvers, err := assignment.ApproversWithInheritance(db, created[1].ID, refs.LevelByName("L2").ID)
		Expect(err).To(BeNil())
		Expect(len(approvers)).To(Equal(1))
		Expect(approvers[0].Identifier).To(Equal(boss.ID.String()))
	})

	t.Run("should reject unknown references", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		refs := twoLevelWorkflow(db)

		_, err := assignment.CreateFromDefinition(db, refs, []workflow.AssignmentDefinition{{Name: "Sales", Parent: "Nowhere"}})
		Expect(err).To(Equal(&bizerror.ErrInvalidInput{Field: "parent", Message: "unknown parent assignment 'Nowhere'"}))

		_, err = assignment.CreateFromDefinition(db, refs, []workflow.AssignmentDefinition{{Name: "A",
			Approvers: map[string][]workflow.ApproverDefinition{"L9": {{Type: "user", Identifier: "1"}}}}})
		Expect(err).To(Equal(&bizerror.ErrInvalidInput{Field: "approvers", Message: "unknown approval level 'L9'"}))

		var count int
		Expect(db.Model(&assignment.Assignment{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())
	})
}
