package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	asynqmod "loyalty-engine/pkg/asynq"
	"loyalty-engine/pkg/config"
	"loyalty-engine/pkg/db"
	"loyalty-engine/pkg/health"
	"loyalty-engine/pkg/logger"
	"loyalty-engine/pkg/otelcol"
	"loyalty-engine/pkg/profiling"
	redismod "loyalty-engine/pkg/redis"
	"loyalty-engine/pkg/sequence"
	"loyalty-engine/pkg/server"
	"loyalty-engine/pkg/task"
	"loyalty-engine/services/creditapp"
	"loyalty-engine/services/events"
	"loyalty-engine/services/points"
	"loyalty-engine/services/referral"
	"loyalty-engine/services/reward"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redismod.Module,
		sequence.Module,
		asynqmod.Client,
		asynqmod.Server,
		task.Module,
		fx.Provide(provideSnowflakeNode),
		fx.Invoke(
			db.Otel,
			db.Metric,
			migrate,
		),
		points.Module,
		points.TaskModule,
		referral.Module,
		referral.TaskModule,
		reward.Module,
		creditapp.Module,
		events.Module,
		fx.Invoke(registerTaskHandlers),
		health.Module,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&points.ClientPointsAccount{},
		&points.PointTransaction{},
		&referral.ReferralProgram{},
		&referral.ReferredFriend{},
		&reward.RewardRedemption{},
		&creditapp.CreditApplication{},
	)
}

func registerTaskHandlers(mux *asynq.ServeMux, pointsTask *points.Task, referralTask *referral.Task) {
	mux.HandleFunc(points.TaskServiceCompleted, pointsTask.HandleServiceCompletedTask)
	mux.HandleFunc(points.TaskEngagement, pointsTask.HandleEngagementTask)
	mux.HandleFunc(referral.TaskStatusChanged, referralTask.HandleStatusChangedTask)
}
