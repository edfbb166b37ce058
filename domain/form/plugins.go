package form

import (
	"approvalflow/bizerror"
	"approvalflow/client/s3"
	"approvalflow/domain/workflow"
	"context"
	"fmt"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	PluginSimple      = "simple"
	PluginAttachments = "attachments"

	AttachmentSuffix = "_attachment"
)

// Plugin implements the form specific handling of submission data.
type Plugin interface {
	Name() string
	// FilterFields keeps the data of the fields editable at the stage. A stage without field views edits all fields.
	FilterFields(fields []workflow.StageFormView, data Data) Data
	// Observe inspects data before it is stored for the application.
	Observe(appID types.ID, data Data) error
	// CheckReadiness reports the first required field without a value.
	CheckReadiness(fields []workflow.StageFormView, data Data) error
	CloneFormData(ctx context.Context, data Data, dstAppID types.ID) (Data, error)
}

var plugins = map[string]Plugin{
	PluginSimple:      simplePlugin{},
	PluginAttachments: attachmentsPlugin{},
}

// PluginOf returns the named plugin, the simple plugin for an unknown or empty name.
func PluginOf(name string) Plugin {
	if p, found := plugins[name]; found {
		return p
	}
	return plugins[PluginSimple]
}

type simplePlugin struct{}

func (simplePlugin) Name() string {
	return PluginSimple
}

func (simplePlugin) FilterFields(fields []workflow.StageFormView, data Data) Data {
	if len(fields) == 0 {
		return data.Copy()
	}
	filtered := Data{}
	for _, f := range fields {
		if v, found := data[f.FieldKey]; found {
			filtered[f.FieldKey] = v
		}
	}
	return filtered
}

func (simplePlugin) Observe(appID types.ID, data Data) error {
	return nil
}

func (simplePlugin) CheckReadiness(fields []workflow.StageFormView, data Data) error {
	for _, f := range fields {
		if f.Required && isBlank(data[f.FieldKey]) {
			return &bizerror.ErrInvalidInput{Field: f.FieldKey, Message: "is required"}
		}
	}
	return nil
}

func (simplePlugin) CloneFormData(ctx context.Context, data Data, dstAppID types.ID) (Data, error) {
	return data.Copy(), nil
}

// attachmentsPlugin stores object keys of the attachment bucket in the fields ending with AttachmentSuffix.
// Objects of an application live under ObjectPrefix.
type attachmentsPlugin struct {
	simplePlugin
}

func ObjectPrefix(appID types.ID) string {
	return "applications/" + appID.String() + "/"
}

func (attachmentsPlugin) Name() string {
	return PluginAttachments
}

func (attachmentsPlugin) Observe(appID types.ID, data Data) error {
	prefix := ObjectPrefix(appID)
	for k, v := range data {
		if !strings.HasSuffix(k, AttachmentSuffix) || isBlank(v) {
			continue
		}
		key, ok := v.(string)
		if !ok {
			return &bizerror.ErrInvalidInput{Field: k, Message: "must be an object key"}
		}
		if !strings.HasPrefix(key, prefix) {
			return &bizerror.ErrMaliciousInput{Message: fmt.Sprintf("object '%s' does not belong to application %s", key, appID)}
		}
	}
	return nil
}

func (attachmentsPlugin) CloneFormData(ctx context.Context, data Data, dstAppID types.ID) (Data, error) {
	cloned := data.Copy()
	for k, v := range data {
		key, ok := v.(string)
		if !strings.HasSuffix(k, AttachmentSuffix) || !ok || key == "" {
			continue
		}
		dstKey := ObjectPrefix(dstAppID) + uuid.New().String()
		if err := s3.CopyObjectFunc(ctx, key, dstKey); err != nil {
			return nil, err
		}
		logrus.Debugf("copied attachment %s to %s", key, dstKey)
		cloned[k] = dstKey
	}
	return cloned, nil
}
