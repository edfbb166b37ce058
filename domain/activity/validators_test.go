package activity

import (
	"approvalflow/bizerror"
	"testing"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
)

func TestValidate(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should reject unknown types", func(t *testing.T) {
		Expect(Validate("dance", 0, Info{})).To(Equal(&bizerror.ErrInvalidInput{Field: "type", Message: "unknown activity type 'dance'"}))
		Expect(IsKnownType(TypeCreation)).To(BeTrue())
		Expect(IsKnownType("dance")).To(BeFalse())
	})

	t.Run("should accept optional creation source", func(t *testing.T) {
		Expect(Validate(TypeCreation, 0, Info{})).To(BeNil())
		Expect(Validate(TypeCreation, 0, Info{"source": types.ID(123)})).To(BeNil())
		Expect(Validate(TypeCreation, 0, Info{"source": "123"})).To(BeNil())
		Expect(Validate(TypeCreation, 0, Info{"source": float64(123)})).To(BeNil())
		Expect(Validate(TypeCreation, 0, Info{"source": "abc"})).
			To(Equal(&bizerror.ErrInvalidInput{Field: "source", Message: "failed on the 'intlike' rule"}))
		Expect(Validate(TypeCreation, 0, Info{"source": 1.5})).ToNot(BeNil())
	})

	t.Run("level activities should require a level", func(t *testing.T) {
		for _, at := range []Type{TypeLevelStarted, TypeLevelEnded, TypeLevelApproved, TypeLevelRejected} {
			Expect(Validate(at, 0, nil)).To(Equal(&bizerror.ErrInvalidInput{Field: "approvalLevelId",
				Message: "activity '" + string(at) + "' requires an approval level"}))
			Expect(Validate(at, 7, nil)).To(BeNil())
		}
	})

	t.Run("comment activities should require comment id", func(t *testing.T) {
		Expect(Validate(TypeCommentCreated, 0, Info{})).To(Equal(&bizerror.ErrInvalidInput{Field: "comment_id", Message: "is required"}))
		Expect(Validate(TypeCommentReplied, 0, Info{"comment_id": 5})).To(BeNil())
	})

	t.Run("notification activities should require resolver and recipient", func(t *testing.T) {
		Expect(Validate(TypeNotificationSent, 0, Info{"resolver": "approver", "recipient": 9})).To(BeNil())
		Expect(Validate(TypeNotificationSent, 0, Info{"recipient": 9})).
			To(Equal(&bizerror.ErrInvalidInput{Field: "resolver", Message: "is required"}))
		Expect(Validate(TypeNotificationSent, 0, Info{"resolver": 3, "recipient": 9})).
			To(Equal(&bizerror.ErrInvalidInput{Field: "resolver", Message: "failed on the 'text' rule"}))
		Expect(Validate(TypeNotificationSent, 0, Info{"resolver": "approver"})).
			To(Equal(&bizerror.ErrInvalidInput{Field: "recipient", Message: "is required"}))
	})

	t.Run("upload activities should name the stored object", func(t *testing.T) {
		Expect(Validate(TypeUploaded, 0, Info{"key": "applications/1/abc", "name": "receipt.pdf"})).To(BeNil())
		Expect(Validate(TypeUploaded, 0, Info{"key": "applications/1/abc"})).To(BeNil())
		Expect(Validate(TypeUploaded, 0, Info{})).To(Equal(&bizerror.ErrInvalidInput{Field: "key", Message: "is required"}))
	})
}
