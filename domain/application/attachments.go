package application

import (
	"approvalflow/bizerror"
	"approvalflow/client/s3"
	"approvalflow/domain/activity"
	"approvalflow/domain/form"
	"approvalflow/persistence"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
)

var (
	UploadAttachmentFunc = UploadAttachment
	ListAttachmentsFunc  = ListAttachments
	OpenAttachmentFunc   = OpenAttachment
)

// Attachment is a file stored for an application. Key is the value an attachment field of the form refers to.
type Attachment struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

func acceptsAttachments(db *gorm.DB, app *Application) error {
	plugin, err := pluginOf(db, app)
	if err != nil {
		return err
	}
	if plugin.Name() != form.PluginAttachments {
		return &bizerror.ErrPrecondition{Message: "Form does not accept attachments"}
	}
	return nil
}

// UploadAttachment stores the content of r under the application's object prefix and records an uploaded activity.
// The object is written first; a failed activity leaves an unreferenced object behind.
func UploadAttachment(ctx context.Context, app *Application, uploaderID types.ID, name string, r io.Reader) (*Attachment, error) {
	db := gormDB(ctx)
	if err := acceptsAttachments(db, app); err != nil {
		return nil, err
	}

	a := &Attachment{Key: form.ObjectPrefix(app.ID) + uuid.New().String(), Name: name}
	if err := s3.PutObjectFunc(ctx, a.Key, r); err != nil {
		return nil, err
	}
	info := activity.Info{"key": a.Key}
	if name != "" {
		info["name"] = name
	}
	err := persistence.InTransaction(db, func(tx *gorm.DB) error {
		_, err := activity.Create(tx, app.Ref(), app.State.StageID, app.State.ApprovalLevelID, uploaderID,
			activity.TypeUploaded, info)
		return err
	})
	if err != nil {
		return nil, err
	}
	afterCommit()
	return a, nil
}

// ListAttachments lists the objects stored for the application. Names come from the uploaded activities.
func ListAttachments(ctx context.Context, app *Application) ([]Attachment, error) {
	db := gormDB(ctx)
	keys, err := s3.ListObjectsFunc(ctx, form.ObjectPrefix(app.ID))
	if err != nil {
		return nil, err
	}
	activities, err := activity.List(db, app.ID)
	if err != nil {
		return nil, err
	}
	names := map[string]string{}
	for _, a := range activities {
		if a.Type != activity.TypeUploaded {
			continue
		}
		key, _ := a.Info["key"].(string)
		name, _ := a.Info["name"].(string)
		names[key] = name
	}

	attachments := []Attachment{}
	for _, key := range keys {
		attachments = append(attachments, Attachment{Key: key, Name: names[key]})
	}
	return attachments, nil
}

// OpenAttachment reads an object of the application. Keys outside the application's prefix are refused.
func OpenAttachment(ctx context.Context, app *Application, key string) (io.ReadCloser, error) {
	if !strings.HasPrefix(key, form.ObjectPrefix(app.ID)) {
		return nil, &bizerror.ErrMaliciousInput{Message: fmt.Sprintf("object '%s' does not belong to application %s", key, app.ID)}
	}
	return s3.GetObjectFunc(ctx, key)
}
