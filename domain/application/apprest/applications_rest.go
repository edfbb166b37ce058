package apprest

import (
	"approvalflow/bizerror"
	"approvalflow/domain/application"
	"approvalflow/domain/form"
	"approvalflow/indices/search"
	"approvalflow/session"
	"errors"
	"net/http"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathApplications = "/v1/applications"
)

func RegisterApplicationsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathApplications, middleWares...)
	g.GET("", handleQuery)
	g.POST("", handleCreate)
	g.GET(":id", handleDetail)
	g.DELETE(":id", handleDelete)
	g.POST(":id/clone", handleClone)
	g.PUT(":id/submission", handleSaveSubmission)
	g.POST(":id/actions", handleAction)
	g.GET(":id/approvers", handleQueryApprovers)
	g.GET(":id/activities", handleQueryActivities)
	g.POST(":id/attachments", handleUploadAttachment)
	g.GET(":id/attachments", handleListAttachments)
	g.GET(":id/attachments/:name", handleDownloadAttachment)
}

func pathID(c *gin.Context) types.ID {
	parsedId, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return parsedId
}

func handleQuery(c *gin.Context) {
	q := search.ApplicationQuery{}
	if err := c.MustBindWith(&q, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	docs, err := search.SearchApplicationsFunc(q, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, docs)
}

func handleCreate(c *gin.Context) {
	creation := application.Creation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	app, err := CreateApplicationFunc(&creation, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, app)
}

func handleDetail(c *gin.Context) {
	detail, err := DetailApplicationFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleDelete(c *gin.Context) {
	if err := DeleteApplicationFunc(pathID(c), session.ExtractSessionFromGinContext(c)); err != nil {
		panic(err)
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func handleClone(c *gin.Context) {
	app, err := CloneApplicationFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, app)
}

func handleSaveSubmission(c *gin.Context) {
	id := pathID(c)
	data := form.Data{}
	if err := c.ShouldBindBodyWith(&data, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	sub, err := SaveSubmissionFunc(id, data, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, sub)
}

func handleAction(c *gin.Context) {
	id := pathID(c)
	req := ActionRequest{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	app, err := TakeActionFunc(id, &req, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, app)
}

func handleQueryApprovers(c *gin.Context) {
	id := pathID(c)
	q := ApproversQuery{}
	if err := c.MustBindWith(&q, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	users, err := QueryApproversFunc(id, &q, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, users)
}

func handleQueryActivities(c *gin.Context) {
	activities, err := QueryActivitiesFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, activities)
}

func handleUploadAttachment(c *gin.Context) {
	id := pathID(c)
	fh, err := c.FormFile("file")
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	f, err := fh.Open()
	if err != nil {
		panic(err)
	}
	defer f.Close()

	a, err := UploadAttachmentFunc(id, fh.Filename, f, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, a)
}

func handleListAttachments(c *gin.Context) {
	attachments, err := ListAttachmentsFunc(pathID(c), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, attachments)
}

func handleDownloadAttachment(c *gin.Context) {
	id := pathID(c)
	r, err := OpenAttachmentFunc(id, form.ObjectPrefix(id)+c.Param("name"), session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	defer r.Close()
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", r, nil)
}
