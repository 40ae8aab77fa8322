package main // Entry point package

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/artificien/orchestrator/internal/artifact"
	"github.com/artificien/orchestrator/internal/config"
	"github.com/artificien/orchestrator/internal/database"
	"github.com/artificien/orchestrator/internal/handler"
	"github.com/artificien/orchestrator/internal/middleware"
	"github.com/artificien/orchestrator/internal/orchestrator"
	"github.com/artificien/orchestrator/internal/provision"
	"github.com/artificien/orchestrator/internal/queue"
	"github.com/artificien/orchestrator/internal/repository"
	"github.com/artificien/orchestrator/internal/router"
	"github.com/artificien/orchestrator/internal/service"
)

// modelStore is everything the wired components need from the model
// table; both repository backends satisfy it.
type modelStore interface {
	orchestrator.ModelStore
	artifact.RecordStore
	handler.ModelLister
}

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the task environment

	cfg := config.Load()
	authCfg := config.LoadAuthConfig()
	rlCfg := config.LoadRateLimitConfig()
	rdb := config.NewRedisClient() // may be nil; limiter and cache degrade gracefully

	var (
		models   modelStore
		users    orchestrator.UserStore
		datasets handler.DatasetGetter
	)
	switch cfg.StoreDriver {
	case "mysql":
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to mysql")
		}
		models = repository.NewSQLModelRepo(db)
		users = repository.NewSQLUserRepo(db)
		datasets = repository.NewSQLDatasetRepo(db)
	default:
		db, err := database.OpenDynamo(cfg.Region, cfg.DynamoEndpoint)
		if err != nil {
			logrus.WithError(err).Fatal("failed to create dynamodb client")
		}
		models = repository.NewModelRepo(db, cfg.ModelTable)
		users = repository.NewUserRepo(db, cfg.UserTable)
		datasets = repository.NewDatasetRepo(db, cfg.DatasetTable)
	}

	sess, err := session.NewSession(aws.NewConfig().WithRegion(cfg.Region))
	if err != nil {
		logrus.WithError(err).Fatal("failed to create AWS session")
	}

	var outputsCache = rdb
	if !cfg.ProvisionCacheEnabled {
		outputsCache = nil
	}
	driver := provision.NewCloudFormationDriver(cloudformation.New(sess), outputsCache)

	var events orchestrator.EventPublisher
	if cfg.EventsEnabled {
		events = service.NewEventPublisher(cfg.BrokerURL)
	}

	var retriever orchestrator.Retriever
	if cfg.ArtifactBucket != "" {
		retriever = artifact.New(
			&http.Client{Timeout: 60 * time.Second},
			s3manager.NewUploader(sess),
			models,
			cfg.ArtifactBucket,
			cfg.Region,
		)
	} else {
		logrus.Warn("ARTIFACT_BUCKET not set, completed models will not be retrieved")
	}

	orch := orchestrator.New(orchestrator.Config{
		Models: models,
		Users:  users,
		Driver: driver,
		NodeSpec: provision.NodeSpec{
			Cluster:          cfg.NodeCluster,
			VPCID:            cfg.NodeVPCID,
			SubnetIDs:        cfg.NodeSubnetIDs,
			ExecutionRoleARN: cfg.NodeExecRoleARN,
			Image:            cfg.NodeImage,
			Environment:      nodeEnvironment(cfg),
		},
		Events:           events,
		EntitlementCheck: cfg.EntitlementCheck,
		CallTimeout:      cfg.CallTimeout,
	})
	rec := orchestrator.NewReconciler(models, retriever, events, cfg.CallTimeout)

	if cfg.ProgressConsumer {
		go queue.StartProgressConsumer(rec)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(rlCfg, rdb))
	router.RegisterRoutes(e, handler.NewOrchestrationHandler(orch, rec, models, datasets), authCfg)

	addr := ":" + cfg.Port
	logrus.WithFields(logrus.Fields{
		"addr":  addr,
		"env":   cfg.Env,
		"store": cfg.StoreDriver,
	}).Info("orchestration service listening")

	if err := e.Start(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// nodeEnvironment builds the container environment for provisioned
// nodes. MASTER_NODE_URL tells the node where to report progress and
// push completed artifacts; when unset the node keeps its baked-in
// default.
func nodeEnvironment(cfg config.Config) map[string]string {
	env := map[string]string{
		"PORT":         "5000",
		"DATABASE_URL": "sqlite:///databasenode.db",
	}
	if cfg.MasterNodeURL != "" {
		env["MASTER_NODE_URL"] = cfg.MasterNodeURL
	}
	return env
}
