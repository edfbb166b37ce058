package state_test

import (
	"approvalflow/domain/state"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("ApplicationState", func() {
	Describe("NewApplicationState", func() {
		It("should keep the given fields without validation", func() {
			s := state.NewApplicationState(10, true, 99)
			Expect(s.StageID.String()).To(Equal("10"))
			Expect(s.IsDraft).To(BeTrue())
			Expect(s.HasApprovalLevel()).To(BeTrue())
			Expect(s.IsStage(10)).To(BeTrue())
			Expect(s.IsStage(11)).To(BeFalse())
		})
	})

	Describe("IsSameAs", func() {
		It("should compare structurally", func() {
			a := state.NewApplicationState(1, false, 2)
			b := state.NewApplicationState(1, false, 2)
			Expect(&a == &b).To(BeFalse())
			Expect(a.IsSameAs(b)).To(BeTrue())
			Expect(b.IsSameAs(a)).To(BeTrue())
		})

		It("should differ when any single field differs", func() {
			base := state.NewApplicationState(1, false, 2)
			Expect(base.IsSameAs(state.NewApplicationState(3, false, 2))).To(BeFalse())
			Expect(base.IsSameAs(state.NewApplicationState(1, true, 2))).To(BeFalse())
			Expect(base.IsSameAs(state.NewApplicationState(1, false, 0))).To(BeFalse())
		})
	})

	Describe("String", func() {
		It("should describe all fields", func() {
			Expect(state.NewApplicationState(1, true, 0).String()).To(Equal("stage=1 draft=true level=0"))
		})
	})
})
