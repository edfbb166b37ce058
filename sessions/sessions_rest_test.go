package sessions_test

import (
	"approvalflow/account"
	"approvalflow/authority"
	"approvalflow/bizerror"
	"approvalflow/persistence"
	"approvalflow/session"
	"approvalflow/sessions"
	"approvalflow/testinfra"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
	"github.com/patrickmn/go-cache"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) *gin.Engine {
	db := testinfra.StartMysqlTestDatabase("approvalflow")
	*testDatabase = db
	Expect(db.DS.GormDB(context.Background()).AutoMigrate(&account.User{}, &account.UserCapability{}).Error).To(BeNil())
	persistence.ActiveDataSourceManager = db.DS

	router := gin.Default()
	router.Use(bizerror.ErrorHandling())
	sessions.RegisterSessionsHandler(router, session.SimpleAuthFilter())
	return router
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	account.LoadCapabilitiesFunc = account.LoadCapabilities
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestSimpleLoginHandler(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should reject wrong credential", func(t *testing.T) {
		defer teardown(t, testDatabase)
		router := setup(t, &testDatabase)

		req := httptest.NewRequest(http.MethodPost, sessions.PathSessions, strings.NewReader(`{"name":"ann","password":"nope"}`))
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(MatchJSON(`{"code":"common.unauthenticated","message":"unauthenticated","data":null}`))
	})

	t.Run("should login and cache session with capabilities", func(t *testing.T) {
		defer teardown(t, testDatabase)
		router := setup(t, &testDatabase)
		db := testDatabase.DS.GormDB(context.Background())

		u, err := account.CreateUser(db, &account.UserCreation{Name: "ann", Secret: "abc123", Nickname: "Ann"})
		Expect(err).To(BeNil())
		Expect(account.GrantCapability(db, u.ID, authority.CapCreateApplication, authority.ScopeAll)).To(BeNil())

		req := httptest.NewRequest(http.MethodPost, sessions.PathSessions, strings.NewReader(`{"name":"ann","password":"abc123"}`))
		status, _, resp := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))

		var token string
		for _, c := range resp.Cookies() {
			if c.Name == session.KeySecToken {
				token = c.Value
			}
		}
		Expect(token).ToNot(BeEmpty())
		v, found := session.TokenCache.Get(token)
		Expect(found).To(BeTrue())
		s := v.(*session.Session)
		Expect(s.Identity).To(Equal(session.Identity{ID: u.ID, Name: "ann", Nickname: "Ann"}))
		Expect(s.Perms).To(Equal(authority.Permissions{"create_application_*"}))
	})
}

func TestDetailSessionHandler(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should refresh capabilities of the session", func(t *testing.T) {
		defer teardown(t, testDatabase)
		router := setup(t, &testDatabase)

		token := "detail-token"
		session.TokenCache.Set(token, &session.Session{Token: token, Identity: session.Identity{ID: 1, Name: "ann"},
			Perms: authority.Permissions{"old_1"}, SigningTime: time.Now()}, cache.DefaultExpiration)
		account.LoadCapabilitiesFunc = func(db *gorm.DB, uid types.ID) (authority.Permissions, error) {
			return authority.Permissions{"new_1"}, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: token})
		status, body, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(MatchJSON(`{"token":"detail-token","identity":{"id":"1","name":"ann","nickname":""},"perms":["new_1"]}`))

		v, _ := session.TokenCache.Get(token)
		Expect(v.(*session.Session).Perms).To(Equal(authority.Permissions{"new_1"}))
	})

	t.Run("should logout", func(t *testing.T) {
		defer teardown(t, testDatabase)
		router := setup(t, &testDatabase)

		session.TokenCache.Set("logout-token", &session.Session{Token: "logout-token"}, cache.DefaultExpiration)
		req := httptest.NewRequest(http.MethodDelete, sessions.PathSessions, nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: "logout-token"})
		status, _, _ := testinfra.ExecuteRequest(req, router)
		Expect(status).To(Equal(http.StatusNoContent))
		_, found := session.TokenCache.Get("logout-token")
		Expect(found).To(BeFalse())
	})
}
