package sessions

import (
	"approvalflow/account"
	"approvalflow/bizerror"
	"approvalflow/persistence"
	"approvalflow/session"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/patrickmn/go-cache"
)

var PathSessions = "/v1/sessions"

func RegisterSessionsHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathSessions)
	g.POST("", SimpleLoginHandler)
	g.DELETE("", SimpleLogoutHandler)

	d := r.Group("/v1/session", middleWares...)
	d.GET("", DetailSessionHandler)
}

func SimpleLoginHandler(c *gin.Context) {
	login := session.LoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	db := persistence.ActiveDataSourceManager.GormDB(c.Request.Context())
	user, err := account.FindUserByCredential(db, login.Name, login.Password)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			panic(bizerror.ErrUnauthenticated)
		}
		panic(err)
	}
	perms, err := account.LoadCapabilitiesFunc(db, user.ID)
	if err != nil {
		panic(err)
	}

	token := uuid.New().String()
	s := session.Session{Token: token, Identity: session.Identity{ID: user.ID, Name: user.Name, Nickname: user.Nickname},
		Perms: perms, SigningTime: time.Now()}
	session.TokenCache.Set(token, &s, cache.DefaultExpiration)

	c.SetCookie(session.KeySecToken, token, int(session.TokenExpiration/time.Second), "/", "", false, true)
	c.JSON(http.StatusOK, &s)
}

func SimpleLogoutHandler(c *gin.Context) {
	token, _ := c.Cookie(session.KeySecToken)
	if token != "" {
		session.TokenCache.Delete(token)
	}
	c.SetCookie(session.KeySecToken, "", -1, "/", "", false, true)
	c.AbortWithStatus(http.StatusNoContent)
}

// DetailSessionHandler reloads the capabilities of the current session and extends its lifetime.
func DetailSessionHandler(c *gin.Context) {
	s := session.ExtractSessionFromGinContext(c)

	now := time.Now()
	ttl := session.TokenExpiration - now.Sub(s.SigningTime)
	if ttl <= 0 {
		panic(bizerror.ErrUnauthenticated)
	}
	perms, err := account.LoadCapabilitiesFunc(persistence.ActiveDataSourceManager.GormDB(c.Request.Context()), s.Identity.ID)
	if err != nil {
		panic(err)
	}
	refreshed := session.Session{Token: s.Token, Identity: s.Identity, Perms: perms, SigningTime: now}
	session.TokenCache.Set(s.Token, &refreshed, ttl)
	c.JSON(http.StatusOK, &refreshed)
}
