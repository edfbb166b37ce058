package authority_test

import (
	"approvalflow/authority"
	"testing"

	. "github.com/onsi/gomega"
)

func TestHasRole(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should work correctly", func(t *testing.T) {
		Expect(authority.Permissions(nil).HasRole("aaa")).To(BeFalse())
		Expect(authority.Permissions{}.HasRole("aaa")).To(BeFalse())
		Expect(authority.Permissions{"bbb", "ccc"}.HasRole("aaa")).To(BeFalse())
		Expect(authority.Permissions{"bbb", "ccc"}.HasRole("CCC")).To(BeTrue())
	})
}

func TestScopes(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should list the scopes of a capability", func(t *testing.T) {
		p := authority.Permissions{
			authority.Scoped(authority.CapViewApplicationAny, "123"),
			authority.Scoped(authority.CapViewApplicationAny, authority.ScopeAll),
			authority.Scoped(authority.CapEditApplicationAny, "456"),
			authority.SystemAdmin,
		}
		Expect(p.Scopes(authority.CapViewApplicationAny)).To(Equal([]string{"123", "*"}))
		Expect(p.Scopes(authority.CapEditApplicationAny)).To(Equal([]string{"456"}))
		Expect(p.Scopes(authority.CapCreateApplication)).To(BeEmpty())
	})
}

func TestHasCapability(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should match scoped capability", func(t *testing.T) {
		p := authority.Permissions{authority.Scoped(authority.CapApproveApplicationAny, "100")}
		Expect(p.HasCapability(authority.CapApproveApplicationAny, 100)).To(BeTrue())
		Expect(p.HasCapability(authority.CapApproveApplicationAny, 101)).To(BeFalse())
		Expect(p.HasCapability(authority.CapApproveApplicationPending, 100)).To(BeFalse())
	})

	t.Run("should match global capability", func(t *testing.T) {
		p := authority.Permissions{authority.Scoped(authority.CapCreateApplication, authority.ScopeAll)}
		Expect(p.HasCapability(authority.CapCreateApplication, 1)).To(BeTrue())
		Expect(p.HasCapability(authority.CapCreateApplication, 2)).To(BeTrue())
	})

	t.Run("system admin should hold every capability", func(t *testing.T) {
		p := authority.Permissions{authority.SystemAdmin}
		Expect(p.HasCapability(authority.CapDeleteApplicationAny, 5)).To(BeTrue())
	})
}
