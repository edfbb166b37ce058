package assignment

import (
	"approvalflow/account"
	"approvalflow/bizerror"
	"approvalflow/domain/workflow"
	"approvalflow/idgen"
	"approvalflow/persistence"
	"errors"
	"fmt"
	"sort"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var assignmentIdWorker = idgen.NewWorker()

func CreateAssignment(db *gorm.DB, workflowID types.ID, name string, parentID types.ID, isDefault bool) (*Assignment, error) {
	a := Assignment{ID: idgen.NextID(assignmentIdWorker), WorkflowID: workflowID, Name: name, ParentID: parentID,
		IsDefault: isDefault, Status: workflow.StatusActive}
	if err := db.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func FindAssignment(db *gorm.DB, id types.ID) (*Assignment, error) {
	a := Assignment{}
	if err := db.Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// DefaultAssignment returns the default assignment of the workflow, nil if the workflow has none.
func DefaultAssignment(db *gorm.DB, workflowID types.ID) (*Assignment, error) {
	a := Assignment{}
	err := db.Where("workflow_id = ? AND is_default = ?", workflowID, true).Order("id ASC").First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func SetStatus(db *gorm.DB, id types.ID, status workflow.Status) error {
	return db.Model(&Assignment{}).Where("id = ?", id).Update("status", status).Error
}

func AddApprover(db *gorm.DB, assignmentID, levelID types.ID, approverType, identifier string) (*Approver, error) {
	if approverType != ApproverTypeUser && approverType != ApproverTypeRelationship {
		return nil, &bizerror.ErrInvalidInput{Field: "type", Message: fmt.Sprintf("unknown approver type '%s'", approverType)}
	}
	if approverType == ApproverTypeRelationship && identifier != RelationshipManager {
		return nil, &bizerror.ErrInvalidInput{Field: "identifier", Message: fmt.Sprintf("unknown relationship '%s'", identifier)}
	}
	a := Approver{ID: idgen.NextID(assignmentIdWorker), AssignmentID: assignmentID, ApprovalLevelID: levelID,
		Type: approverType, Identifier: identifier, Active: true}
	if err := db.Create(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func DeactivateApprover(db *gorm.DB, id types.ID) error {
	return db.Model(&Approver{}).Where("id = ?", id).Update("active", false).Error
}

// ActiveApprovers lists the approvers configured directly on an assignment for a level.
func ActiveApprovers(db *gorm.DB, assignmentID, levelID types.ID) ([]Approver, error) {
	approvers := []Approver{}
	err := db.Where("assignment_id = ? AND approval_level_id = ? AND active = ?", assignmentID, levelID, true).
		Order("id ASC").Find(&approvers).Error
	if err != nil {
		return nil, err
	}
	return approvers, nil
}

// ApproversWithInheritance returns the approvers effective for the level on the assignment. An assignment with no
// approvers of its own inherits from the closest ancestor that has some, and finally from the workflow's default
// assignment.
func ApproversWithInheritance(db *gorm.DB, assignmentID, levelID types.ID) ([]Approver, error) {
	start, err := FindAssignment(db, assignmentID)
	if err != nil {
		return nil, err
	}

	visited := map[types.ID]bool{}
	for current := start; current != nil; {
		visited[current.ID] = true
		approvers, err := ActiveApprovers(db, current.ID, levelID)
		if err != nil {
			return nil, err
		}
		if len(approvers) > 0 || current.IsDefault {
			return approvers, nil
		}
		if current.ParentID == 0 || visited[current.ParentID] {
			break
		}
		if current, err = FindAssignment(db, current.ParentID); err != nil {
			return nil, err
		}
	}

	def, err := DefaultAssignment(db, start.WorkflowID)
	if err != nil {
		return nil, err
	}
	if def == nil || visited[def.ID] {
		return []Approver{}, nil
	}
	return ActiveApprovers(db, def.ID, levelID)
}

// ResolveApprovers maps approver rows to user ids. A manager relationship resolves through the given job
// assignment, or through every job assignment of the applicant when none is given. The result is distinct and
// sorted.
func ResolveApprovers(db *gorm.DB, approvers []Approver, applicantID, jobAssignmentID types.ID) ([]types.ID, error) {
	seen := map[types.ID]bool{}
	var managers []types.ID
	managersLoaded := false

	for _, a := range approvers {
		switch a.Type {
		case ApproverTypeUser:
			id, err := types.ParseID(a.Identifier)
			if err != nil {
				return nil, fmt.Errorf("approver %s has invalid user identifier '%s': %w", a.ID, a.Identifier, err)
			}
			seen[id] = true
		case ApproverTypeRelationship:
			if a.Identifier != RelationshipManager {
				return nil, fmt.Errorf("approver %s has unknown relationship '%s'", a.ID, a.Identifier)
			}
			if !managersLoaded {
				var err error
				if managers, err = managersOf(db, applicantID, jobAssignmentID); err != nil {
					return nil, err
				}
				managersLoaded = true
			}
			for _, m := range managers {
				seen[m] = true
			}
		default:
			return nil, fmt.Errorf("approver %s has unknown type '%s'", a.ID, a.Type)
		}
	}

	ids := make([]types.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func managersOf(db *gorm.DB, applicantID, jobAssignmentID types.ID) ([]types.ID, error) {
	var jas []account.JobAssignment
	if jobAssignmentID != 0 {
		ja, err := account.FindJobAssignment(db, jobAssignmentID)
		if err != nil {
			return nil, err
		}
		jas = []account.JobAssignment{*ja}
	} else {
		var err error
		if jas, err = account.JobAssignmentsOf(db, applicantID); err != nil {
			return nil, err
		}
	}
	var managers []types.ID
	for _, ja := range jas {
		if ja.ManagerID != 0 {
			managers = append(managers, ja.ManagerID)
		}
	}
	return managers, nil
}

// CreateFromDefinition persists the assignment tree of a workflow definition. Parents must be declared before their
// children. A user approver may be identified by user id or by user name.
func CreateFromDefinition(db *gorm.DB, refs *workflow.DefinitionRefs, defs []workflow.AssignmentDefinition) ([]Assignment, error) {
	var created []Assignment
	err := persistence.InTransaction(db, func(tx *gorm.DB) error {
		byName := map[string]types.ID{}
		for _, def := range defs {
			var parentID types.ID
			if def.Parent != "" {
				id, found := byName[def.Parent]
				if !found {
					return &bizerror.ErrInvalidInput{Field: "parent", Message: fmt.Sprintf("unknown parent assignment '%s'", def.Parent)}
				}
				parentID = id
			}
			a, err := CreateAssignment(tx, refs.Workflow.ID, def.Name, parentID, def.Default)
			if err != nil {
				return err
			}
			byName[def.Name] = a.ID
			created = append(created, *a)

			levelNames := make([]string, 0, len(def.Approvers))
			for name := range def.Approvers {
				levelNames = append(levelNames, name)
			}
			sort.Strings(levelNames)
			for _, levelName := range levelNames {
				level := refs.LevelByName(levelName)
				if level == nil {
					return &bizerror.ErrInvalidInput{Field: "approvers", Message: fmt.Sprintf("unknown approval level '%s'", levelName)}
				}
				for _, ad := range def.Approvers[levelName] {
					identifier := ad.Identifier
					if ad.Type == ApproverTypeUser {
						if identifier, err = userIdentifier(tx, identifier); err != nil {
							return err
						}
					}
					if _, err := AddApprover(tx, a.ID, level.ID, ad.Type, identifier); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func userIdentifier(db *gorm.DB, identifier string) (string, error) {
	if _, err := types.ParseID(identifier); err == nil {
		return identifier, nil
	}
	user := account.User{}
	if err := db.Where("name = ?", identifier).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", &bizerror.ErrInvalidInput{Field: "identifier", Message: fmt.Sprintf("unknown user '%s'", identifier)}
		}
		return "", err
	}
	return user.ID.String(), nil
}
