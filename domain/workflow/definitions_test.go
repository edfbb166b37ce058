package workflow_test

import (
	"approvalflow/bizerror"
	"approvalflow/domain/workflow"
	"approvalflow/testinfra"
	"context"
	"strings"
	"testing"

	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

const leaveDefinitionYAML = `
- type: Leave request
  name: Annual leave
  form:
    title: Leave form
    plugin: simple
  stages:
    - name: Request
      type: form_submission
      fields:
        - key: reason
          required: true
        - key: days
    - name: Review
      type: approvals
      levels: [Manager, HR]
    - name: Done
      type: finished
  assignments:
    - name: Company
      default: true
      approvers:
        Manager:
          - type: relationship
            identifier: manager
`

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) *gorm.DB {
	db := testinfra.StartMysqlTestDatabase("approvalflow")
	*testDatabase = db
	gdb := db.DS.GormDB(context.Background())
	Expect(gdb.AutoMigrate(workflow.Models()...).Error).To(BeNil())
	return gdb
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestLoadDefinitions(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should parse workflow definitions", func(t *testing.T) {
		defs, err := workflow.LoadDefinitions(strings.NewReader(leaveDefinitionYAML))
		Expect(err).To(BeNil())
		Expect(len(defs)).To(Equal(1))
		d := defs[0]
		Expect(d.Type).To(Equal("Leave request"))
		Expect(d.Form).To(Equal(workflow.FormDefinition{Title: "Leave form", Plugin: "simple"}))
		Expect(len(d.Stages)).To(Equal(3))
		Expect(d.Stages[0].Fields).To(Equal([]workflow.FieldDefinition{{Key: "reason", Required: true}, {Key: "days"}}))
		Expect(d.Stages[1].Levels).To(Equal([]string{"Manager", "HR"}))
		Expect(d.Assignments[0].Approvers["Manager"]).To(Equal([]workflow.ApproverDefinition{{Type: "relationship", Identifier: "manager"}}))
	})

	t.Run("should accept empty document", func(t *testing.T) {
		defs, err := workflow.LoadDefinitions(strings.NewReader(""))
		Expect(err).To(BeNil())
		Expect(defs).To(BeEmpty())
	})

	t.Run("should reject invalid definitions", func(t *testing.T) {
		_, err := workflow.LoadDefinitions(strings.NewReader(`
- type: T
  name: N
  stages:
    - name: Request
      type: form_submission
`))
		Expect(err).To(Equal(&bizerror.ErrInvalidInput{Field: "stages", Message: "workflow N has no finished stage"}))

		_, err = workflow.LoadDefinitions(strings.NewReader(`
- type: T
  name: N
  stages:
    - name: Review
      type: approvals
    - name: Done
      type: finished
`))
		Expect(err).To(Equal(&bizerror.ErrInvalidInput{Field: "stages", Message: "approval stage Review has no levels"}))

		_, err = workflow.LoadDefinitions(strings.NewReader(`
- type: T
  name: N
  stages:
    - name: Odd
      type: teleport
`))
		Expect(err).To(Equal(&bizerror.ErrInvalidInput{Field: "stages", Message: "unknown stage type 'teleport'"}))
	})
}

func TestCreateDefinition(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should persist the whole workflow", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		defs, err := workflow.LoadDefinitions(strings.NewReader(leaveDefinitionYAML))
		Expect(err).To(BeNil())
		refs, err := workflow.CreateDefinition(db, defs[0])
		Expect(err).To(BeNil())

		Expect(refs.Version.IsActive()).To(BeTrue())
		Expect(refs.FormVersion.IsActive()).To(BeTrue())
		Expect(refs.Form.PluginName).To(Equal("simple"))

		stages, err := workflow.FindStages(db, refs.Version.ID)
		Expect(err).To(BeNil())
		Expect(stages).To(Equal(refs.Stages))
		Expect(stages[0].Type).To(Equal(workflow.StageTypeFormSubmission))
		Expect(stages[2].Type).To(Equal(workflow.StageTypeFinished))

		levels, err := workflow.FindLevels(db, refs.StageByName("Review").ID)
		Expect(err).To(BeNil())
		Expect(len(levels)).To(Equal(2))
		Expect(levels[0].Name).To(Equal("Manager"))
		Expect(refs.LevelByName("HR").ID).To(Equal(levels[1].ID))

		fields, err := workflow.StageFields(db, stages[0].ID)
		Expect(err).To(BeNil())
		Expect(len(fields)).To(Equal(2))
		Expect(fields[0].Required).To(BeTrue())

		active, err := workflow.ActiveVersion(db, refs.Workflow.ID)
		Expect(err).To(BeNil())
		Expect(active.ID).To(Equal(refs.Version.ID))

		// workflow type is reused by name
		refs2, err := workflow.CreateDefinition(db, defs[0])
		Expect(err).To(BeNil())
		Expect(refs2.WorkflowType.ID).To(Equal(refs.WorkflowType.ID))
	})

	t.Run("active version should be nil after archiving", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		defs, _ := workflow.LoadDefinitions(strings.NewReader(leaveDefinitionYAML))
		refs, err := workflow.CreateDefinition(db, defs[0])
		Expect(err).To(BeNil())
		Expect(workflow.Archive(db, refs.Version.ID)).To(BeNil())

		active, err := workflow.ActiveVersion(db, refs.Workflow.ID)
		Expect(err).To(BeNil())
		Expect(active).To(BeNil())

		Expect(workflow.ActivateVersion(db, refs.Version.ID)).To(BeNil())
		active, err = workflow.ActiveVersion(db, refs.Workflow.ID)
		Expect(err).To(BeNil())
		Expect(active.ID).To(Equal(refs.Version.ID))
	})
}

func TestLevelInVersion(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should reject levels of other versions", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		defs, _ := workflow.LoadDefinitions(strings.NewReader(leaveDefinitionYAML))
		refs1, err := workflow.CreateDefinition(db, defs[0])
		Expect(err).To(BeNil())
		refs2, err := workflow.CreateDefinition(db, defs[0])
		Expect(err).To(BeNil())

		l, err := workflow.LevelInVersion(db, refs1.Levels[0].ID, refs1.Version.ID)
		Expect(err).To(BeNil())
		Expect(l.ID).To(Equal(refs1.Levels[0].ID))

		_, err = workflow.LevelInVersion(db, refs2.Levels[0].ID, refs1.Version.ID)
		Expect(bizerror.IsPrecondition(err)).To(BeTrue())

		_, err = workflow.LevelInVersion(db, 12345, refs1.Version.ID)
		Expect(bizerror.IsPrecondition(err)).To(BeTrue())
	})
}
