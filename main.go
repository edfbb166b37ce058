package main

import (
	"approvalflow/account"
	"approvalflow/bizerror"
	"approvalflow/client/es"
	"approvalflow/client/s3"
	"approvalflow/common"
	"approvalflow/domain/application"
	"approvalflow/domain/application/apprest"
	"approvalflow/domain/assignment"
	"approvalflow/domain/workflow"
	"approvalflow/event"
	"approvalflow/indices"
	"approvalflow/infra/tracing"
	"approvalflow/persistence"
	"approvalflow/servehttp"
	"approvalflow/session"
	"approvalflow/sessions"
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("load .env: %v", err)
	}
	logrus.Info("service start")

	closer, err := tracing.InitGlobalTracer(common.GetServiceName())
	if err != nil {
		logrus.Fatalf("init tracer failed %v", err)
	}
	defer closer.Close()

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v", err)
		}
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database connection failed %v", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	db := ds.GormDB(context.Background())
	models := append(workflow.Models(), assignment.Models()...)
	models = append(models, application.Models()...)
	models = append(models, account.Models()...)
	models = append(models, &event.EventRecord{})
	if err := db.AutoMigrate(models...).Error; err != nil {
		logrus.Fatalf("database migration failed %v", err)
	}

	if path := os.Getenv("WORKFLOW_DEFINITIONS"); path != "" {
		if err := seedDefinitions(db, path); err != nil {
			logrus.Fatalf("seed workflow definitions failed %v", err)
		}
	}

	s3.Bootstrap()
	if _, err := es.CreateClientFromEnv(); err != nil {
		logrus.Fatalf("create elasticsearch client failed %v", err)
	}

	event.EventHandlers = append(event.EventHandlers, indices.IndexApplicationEventHandle)
	relayCron, err := event.StartRelayCron(os.Getenv("EVENT_RELAY_SCHEDULE"))
	if err != nil {
		logrus.Fatalf("start event relay failed %v", err)
	}
	defer relayCron.Stop()
	indexCron, err := indices.StartCron(os.Getenv("INDEX_SYNC_SCHEDULE"))
	if err != nil {
		logrus.Fatalf("start index synchronization failed %v", err)
	}
	defer indexCron.Stop()

	engine := gin.Default()
	engine.Use(tracing.TracingIngress())
	engine.Use(bizerror.ErrorHandling())
	engine.Use(servehttp.DefinitionCacheFilter(workflow.NewDefinitionCache(10 * time.Minute)))
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.GetServiceName())
	})

	sessions.RegisterSessionsHandler(engine, session.SimpleAuthFilter())
	apprest.RegisterApplicationsRestAPI(engine, session.SimpleAuthFilter())
	indices.RegisterIndicesRestAPI(engine, session.SimpleAuthFilter())

	servehttp.StartHTTPServer(engine, os.Getenv("HTTP_ADDR"))
}

// seedDefinitions creates the workflows of a yaml definition file which do not exist yet, matched by name.
func seedDefinitions(db *gorm.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	defs, err := workflow.LoadDefinitions(f)
	if err != nil {
		return err
	}
	for _, def := range defs {
		existing := workflow.Workflow{}
		err := db.Where("name = ?", def.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		refs, err := workflow.CreateDefinition(db, def)
		if err != nil {
			return err
		}
		if _, err := assignment.CreateFromDefinition(db, refs, def.Assignments); err != nil {
			return err
		}
		logrus.Infof("workflow %s seeded with version %d", def.Name, refs.Version.ID)
	}
	return nil
}
