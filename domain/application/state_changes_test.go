package application_test

import (
	"approvalflow/bizerror"
	"approvalflow/domain/activity"
	"approvalflow/domain/application"
	"approvalflow/domain/state"
	"approvalflow/domain/workflow"
	"approvalflow/testinfra"
	"testing"

	. "github.com/onsi/gomega"
)

func TestChangeState(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should do nothing when the state is unchanged", func(t *testing.T) {
		defer teardown(t, testDatabase)
		ctx, db := setup(t, &testDatabase)
		f := newLeaveFixture(db)
		app := f.create(ctx)
		before := activityTypes(db, app)

		Expect(application.ChangeState(ctx, app, state.NewApplicationState(app.State.StageID, true, 0), f.ann.ID)).To(BeNil())
		Expect(activityTypes(db, app)).To(Equal(before))
		Expect(app.State.IsDraft).To(BeTrue())
	})

	t.Run("should run exit and entry hooks of the stages", func(t *testing.T) {
		defer teardown(t, testDatabase)
		ctx, db := setup(t, &testDatabase)
		f := newLeaveFixture(db)
		app := f.create(ctx)

		review := state.NewApplicationState(f.stage("Review"), false, f.level("Manager"))
		Expect(application.ChangeState(ctx, app, review, 0)).To(BeNil())
		Expect(app.State.IsSameAs(review)).To(BeTrue())
		Expect(activityTypes(db, app)).To(Equal([]activity.Type{
			activity.TypeCreation, activity.TypeStageStarted,
			activity.TypeStageEnded, activity.TypeStageStarted, activity.TypeLevelStarted,
		}))

		hr := state.NewApplicationState(f.stage("Review"), false, f.level("HR"))
		Expect(application.ChangeState(ctx, app, hr, 0)).To(BeNil())
		Expect(activityTypes(db, app)[5:]).To(Equal([]activity.Type{activity.TypeLevelEnded, activity.TypeLevelStarted}))

		done := state.NewApplicationState(f.stage("Done"), false, 0)
		Expect(application.ChangeState(ctx, app, done, 0)).To(BeNil())
		Expect(activityTypes(db, app)[7:]).To(Equal([]activity.Type{
			activity.TypeLevelEnded, activity.TypeStageEnded, activity.TypeFinished,
		}))
		Expect(app.IsCompleted()).To(BeTrue())

		found, err := application.FindApplication(ctx, app.ID)
		Expect(err).To(BeNil())
		Expect(found.State.IsSameAs(done)).To(BeTrue())
	})

	t.Run("should reject states outside of the workflow version", func(t *testing.T) {
		defer teardown(t, testDatabase)
		ctx, db := setup(t, &testDatabase)
		f := newLeaveFixture(db)
		app := f.create(ctx)

		err := application.ChangeState(ctx, app, state.NewApplicationState(f.stage("Done"), false, f.level("HR")), 0)
		Expect(bizerror.IsCodingError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("does not belong to stage"))

		other, err := workflow.CreateDefinition(db, workflow.Definition{Type: "Leave request", Name: "Sick leave",
			Stages: []workflow.StageDefinition{
				{Name: "Request", Type: workflow.StageTypeFormSubmission},
				{Name: "Done", Type: workflow.StageTypeFinished},
			}})
		Expect(err).To(BeNil())
		err = application.ChangeState(ctx, app, state.NewApplicationState(other.Stages[1].ID, false, 0), 0)
		Expect(bizerror.IsCodingError(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("does not belong to workflow version"))

		found, err := application.FindApplication(ctx, app.ID)
		Expect(err).To(BeNil())
		Expect(found.State.IsDraft).To(BeTrue())
		Expect(activityTypes(db, app)).To(HaveLen(2))
	})
}

func TestStateManagers(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should only start applications in form stages", func(t *testing.T) {
		for _, tc := range []struct {
			stageType workflow.StageType
			message   string
		}{
			{workflow.StageTypeApprovals, "An application can not start in an approval stage"},
			{workflow.StageTypeWaiting, "An application can not start in a waiting stage"},
			{workflow.StageTypeFinished, "An application can not start in a finished stage"},
		} {
			m, err := application.StateManagerOf(workflow.Stage{ID: 1, Type: tc.stageType})
			Expect(err).To(BeNil())
			Expect(m.Type()).To(Equal(tc.stageType))
			_, err = m.CreationState()
			Expect(bizerror.IsCodingError(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(tc.message))
		}

		m, err := application.StateManagerOf(workflow.Stage{ID: 1, Type: workflow.StageTypeFormSubmission})
		Expect(err).To(BeNil())
		s, err := m.CreationState()
		Expect(err).To(BeNil())
		Expect(s.IsSameAs(state.NewApplicationState(1, true, 0))).To(BeTrue())

		_, err = application.StateManagerOf(workflow.Stage{ID: 1, Type: "teleport"})
		Expect(bizerror.IsCodingError(err)).To(BeTrue())
	})
}
