package workflow

import (
	"approvalflow/bizerror"
	"approvalflow/idgen"
	"approvalflow/persistence"
	"errors"
	"fmt"
	"io"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"gopkg.in/yaml.v3"
)

var definitionIdWorker = idgen.NewWorker()

// Definition describes a complete workflow: its type, form, ordered stages and assignment tree.
type Definition struct {
	Type        string                 `yaml:"type"`
	Name        string                 `yaml:"name"`
	Status      Status                 `yaml:"status"`
	Form        FormDefinition         `yaml:"form"`
	Stages      []StageDefinition      `yaml:"stages"`
	Assignments []AssignmentDefinition `yaml:"assignments"`
}

type FormDefinition struct {
	Title  string `yaml:"title"`
	Plugin string `yaml:"plugin"`
}

type StageDefinition struct {
	Name   string            `yaml:"name"`
	Type   StageType         `yaml:"type"`
	Levels []string          `yaml:"levels"`
	Fields []FieldDefinition `yaml:"fields"`
}

type FieldDefinition struct {
	Key      string `yaml:"key"`
	Required bool   `yaml:"required"`
}

// AssignmentDefinition configures approvers per approval level name.
type AssignmentDefinition struct {
	Name      string                          `yaml:"name"`
	Default   bool                            `yaml:"default"`
	Parent    string                          `yaml:"parent"`
	Approvers map[string][]ApproverDefinition `yaml:"approvers"`
}

type ApproverDefinition struct {
	Type       string `yaml:"type"`
	Identifier string `yaml:"identifier"`
}

type DefinitionRefs struct {
	WorkflowType WorkflowType
	Workflow     Workflow
	Version      WorkflowVersion
	Form         Form
	FormVersion  FormVersion
	Stages       []Stage
	Levels       []ApprovalLevel
}

func (r *DefinitionRefs) StageByName(name string) *Stage {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}

func (r *DefinitionRefs) LevelByName(name string) *ApprovalLevel {
	for i := range r.Levels {
		if r.Levels[i].Name == name {
			return &r.Levels[i]
		}
	}
	return nil
}

// LoadDefinitions parses a yaml list of workflow definitions.
func LoadDefinitions(r io.Reader) ([]Definition, error) {
	var defs []Definition
	if err := yaml.NewDecoder(r).Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return []Definition{}, nil
		}
		return nil, err
	}
	for i := range defs {
		if err := defs[i].Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

func (d *Definition) Validate() error {
	if d.Name == "" || d.Type == "" {
		return &bizerror.ErrInvalidInput{Field: "name", Message: "workflow name and type are required"}
	}
	if len(d.Stages) == 0 {
		return &bizerror.ErrInvalidInput{Field: "stages", Message: "workflow " + d.Name + " has no stages"}
	}
	finished := 0
	for _, s := range d.Stages {
		if !s.Type.IsValid() {
			return &bizerror.ErrInvalidInput{Field: "stages", Message: fmt.Sprintf("unknown stage type '%s'", s.Type)}
		}
		if s.Type == StageTypeApprovals && len(s.Levels) == 0 {
			return &bizerror.ErrInvalidInput{Field: "stages", Message: "approval stage " + s.Name + " has no levels"}
		}
		if s.Type == StageTypeFinished {
			finished++
		}
	}
	if finished == 0 {
		return &bizerror.ErrInvalidInput{Field: "stages", Message: "workflow " + d.Name + " has no finished stage"}
	}
	return nil
}

// CreateDefinition persists a workflow definition in one transaction. The workflow type is reused by name.
// Assignments are left to the caller.
func CreateDefinition(db *gorm.DB, def Definition) (*DefinitionRefs, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	status := def.Status
	if status == "" {
		status = StatusActive
	}
	now := types.CurrentTimestamp()

	refs := DefinitionRefs{}
	err := persistence.InTransaction(db, func(tx *gorm.DB) error {
		wt := WorkflowType{}
		err := tx.Where("name = ?", def.Type).First(&wt).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			wt = WorkflowType{ID: idgen.NextID(definitionIdWorker), Name: def.Type}
			err = tx.Create(&wt).Error
		}
		if err != nil {
			return err
		}
		refs.WorkflowType = wt

		refs.Form = Form{ID: idgen.NextID(definitionIdWorker), Title: def.Form.Title, PluginName: def.Form.Plugin}
		if refs.Form.Title == "" {
			refs.Form.Title = def.Name
		}
		if err := tx.Create(&refs.Form).Error; err != nil {
			return err
		}
		refs.FormVersion = FormVersion{ID: idgen.NextID(definitionIdWorker), FormID: refs.Form.ID, Status: status}
		if err := tx.Create(&refs.FormVersion).Error; err != nil {
			return err
		}

		refs.Workflow = Workflow{ID: idgen.NextID(definitionIdWorker), Name: def.Name, WorkflowTypeID: wt.ID,
			FormID: refs.Form.ID, CreateTime: now}
		if err := tx.Create(&refs.Workflow).Error; err != nil {
			return err
		}
		refs.Version = WorkflowVersion{ID: idgen.NextID(definitionIdWorker), WorkflowID: refs.Workflow.ID,
			FormVersionID: refs.FormVersion.ID, Status: status, CreateTime: now}
		if err := tx.Create(&refs.Version).Error; err != nil {
			return err
		}

		for i, sd := range def.Stages {
			stage := Stage{ID: idgen.NextID(definitionIdWorker), WorkflowVersionID: refs.Version.ID, Name: sd.Name,
				Type: sd.Type, SortOrder: i + 1}
			if err := tx.Create(&stage).Error; err != nil {
				return err
			}
			refs.Stages = append(refs.Stages, stage)

			for j, ln := range sd.Levels {
				level := ApprovalLevel{ID: idgen.NextID(definitionIdWorker), WorkflowVersionID: refs.Version.ID,
					StageID: stage.ID, Name: ln, SortOrder: j + 1}
				if err := tx.Create(&level).Error; err != nil {
					return err
				}
				refs.Levels = append(refs.Levels, level)
			}
			for _, fd := range sd.Fields {
				view := StageFormView{ID: idgen.NextID(definitionIdWorker), StageID: stage.ID, FieldKey: fd.Key, Required: fd.Required}
				if err := tx.Create(&view).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &refs, nil
}
