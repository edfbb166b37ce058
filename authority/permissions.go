package authority

import (
	"strings"

	"github.com/fundwit/go-commons/types"
)

// Permissions holds capability grants. A grant is either a global role (e.g. "system:admin") or a scoped capability
// "<capability>_<scope>", where scope is an assignment id or "*" for every assignment.
type Permissions []string

const (
	SystemAdmin = "system:admin"

	ScopeAll = "*"
)

const (
	CapCreateApplication = "create_application"

	CapViewApplicationAny = "view_application_any"
	CapEditApplicationAny = "edit_application_any"

	CapEditInApprovalsAny       = "edit_in_approvals_any"
	CapEditInApprovalsApplicant = "edit_in_approvals_applicant"

	CapDeleteApplicationAny       = "delete_application_any"
	CapDeleteApplicationApplicant = "delete_application_applicant"

	CapApproveApplicationAny       = "approve_application_any"
	CapApproveApplicationPending   = "approve_application_pending"
	CapApproveApplicationApplicant = "approve_application_applicant"

	CapWithdrawUnsubmittedAny       = "withdraw_unsubmitted_any"
	CapWithdrawUnsubmittedApplicant = "withdraw_unsubmitted_applicant"
	CapWithdrawInApprovalsAny       = "withdraw_in_approvals_any"
	CapWithdrawInApprovalsApplicant = "withdraw_in_approvals_applicant"
)

func (c Permissions) HasRole(role string) bool {
	for _, v := range c {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}

// Scopes lists the scopes in which capability is granted, ScopeAll included.
func (c Permissions) Scopes(capability string) []string {
	prefix := capability + "_"
	var scopes []string
	for _, v := range c {
		if strings.HasPrefix(v, prefix) {
			scopes = append(scopes, strings.TrimPrefix(v, prefix))
		}
	}
	return scopes
}

// HasCapability reports whether capability is granted in scope, globally, or implied by system administration.
func (c Permissions) HasCapability(capability string, scope types.ID) bool {
	return c.HasRole(SystemAdmin) ||
		c.HasRole(Scoped(capability, scope.String())) ||
		c.HasRole(Scoped(capability, ScopeAll))
}

func Scoped(capability string, scope string) string {
	return capability + "_" + scope
}
