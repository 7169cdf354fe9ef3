package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/delivery/http/controllers"
	"github.com/nqluong/appointment-project-sub001/internal/app/delivery/http/middlewares"
	"github.com/nqluong/appointment-project-sub001/internal/app/delivery/http/routers"
	"github.com/nqluong/appointment-project-sub001/internal/app/drivers/database"
	"github.com/nqluong/appointment-project-sub001/internal/app/drivers/logger"
	"github.com/nqluong/appointment-project-sub001/internal/app/drivers/messaging"
	"github.com/nqluong/appointment-project-sub001/internal/app/drivers/storage"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/core/appointments"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/core/notifications"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/core/payments"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/core/reconciler"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/core/slots"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/audit"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/gateway"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/jwtmanager"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/locker"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/notifyqueue"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/redis"
	"github.com/nqluong/appointment-project-sub001/internal/app/services/shared/refundpolicy"
)

func main() {
	driverConfig := config.NewDriverConfig()
	internalConfig := config.NewInternalConfig()

	log := logger.NewLogrusLogger(internalConfig)
	zapLogger := logger.NewZapLogger(driverConfig, internalConfig)
	defer zapLogger.Sync()

	location, err := time.LoadLocation(internalConfig.App.Timezone)
	if err != nil {
		log.Fatalf("Error loading location: %v", err)
	}
	time.Local = location

	mongoClient := database.NewMongoDB(driverConfig)
	mongoDB := mongoClient.Database(driverConfig.MongoDB.DbName)
	redisClient := database.NewRedisClient(driverConfig)
	rabbitConn := messaging.NewRabbitMQ(driverConfig)
	minioClient := storage.NewMinio(driverConfig)
	chiRouter := chi.NewRouter()

	stopWorkers := bootstrapingTheApp(config.Bootstrap{
		Router:         chiRouter,
		MongoDB:        mongoDB,
		Redis:          redisClient,
		RabbitMQ:       rabbitConn,
		Minio:          minioClient,
		Logger:         log,
		ZapLogger:      zapLogger,
		DriverConfig:   driverConfig,
		InternalConfig: internalConfig,
	})

	server := &http.Server{
		Addr:    internalConfig.App.Port,
		Handler: chiRouter,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	log.Println("Waiting for pending requests that already received by server to be processed..")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Second*time.Duration(internalConfig.App.ShutdownTimeout),
	)
	defer cancel()

	stopWorkers()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

func bootstrapingTheApp(bootstrap config.Bootstrap) (stopWorkers func()) {
	ctx := context.Background()

	// Redis
	redisRepository := redis.NewRedisRepository(bootstrap.Redis)
	lockService := locker.NewLockService(redisRepository, bootstrap.ZapLogger)

	// Middlewares
	mw := middlewares.NewMiddlewares(bootstrap.ZapLogger, bootstrap.InternalConfig)

	// Gateway
	vnpayService := gateway.NewVNPayService(&bootstrap.InternalConfig.VNPay, bootstrap.InternalConfig.App.Timezone, bootstrap.ZapLogger)
	gatewayRouter := gateway.NewGatewayRouter(vnpayService)

	// Refund policy
	refundPolicyService := refundpolicy.NewRefundPolicyService(&bootstrap.InternalConfig.RefundPolicy)

	// Notification queue
	notificationCfg := &bootstrap.InternalConfig.Notification
	notifyQueue, err := notifyqueue.NewService(
		bootstrap.RabbitMQ,
		bootstrap.ZapLogger,
		notificationCfg.QueueName,
		notificationCfg.DeadLetterQueueName,
		notificationCfg.BatchSize,
	)
	if err != nil {
		bootstrap.Logger.Fatalf("Failed to set up notification queue: %v", err)
	}
	notificationPublisher := notifyqueue.NewPublisher(notifyQueue, bootstrap.ZapLogger)

	jwtManager, err := jwtmanager.NewJWTManager(notificationCfg, bootstrap.ZapLogger)
	if err != nil {
		bootstrap.Logger.Fatalf("Failed to set up jwt manager: %v", err)
	}

	// Callback audit archive
	callbackArchive := audit.NewMinioCallbackArchive(bootstrap.Minio, bootstrap.DriverConfig.Minio.BucketName, bootstrap.ZapLogger)

	// Repositories
	paymentRepository := payments.NewPaymentMongoRepository(bootstrap.MongoDB)
	appointmentRepository := appointments.NewAppointmentMongoRepository(bootstrap.MongoDB)
	slotRepository := slots.NewSlotMongoRepository(bootstrap.MongoDB)

	// Payment orchestrator
	paymentUsecase := payments.NewPaymentUsecase(
		paymentRepository,
		appointmentRepository,
		slotRepository,
		gatewayRouter,
		refundPolicyService,
		notificationPublisher,
		callbackArchive,
		bootstrap.InternalConfig,
		bootstrap.ZapLogger,
	)
	paymentController := controllers.NewPaymentController(bootstrap.ZapLogger, paymentUsecase)

	routers.SetupRoutes(bootstrap.Router, bootstrap.InternalConfig, mw, paymentController)

	// Background workers
	expirationWorker := reconciler.NewExpirationWorker(
		bootstrap.ZapLogger,
		&bootstrap.InternalConfig.Reconciler,
		lockService,
		appointmentRepository,
		paymentRepository,
		paymentUsecase,
	)
	stuckPaymentWorker := reconciler.NewStuckPaymentWorker(
		bootstrap.ZapLogger,
		&bootstrap.InternalConfig.StuckPayment,
		lockService,
		paymentRepository,
		paymentUsecase,
	)
	deliveryWorker := notifications.NewWorker(
		bootstrap.ZapLogger,
		notificationCfg,
		lockService,
		notifyQueue,
		jwtManager,
		notificationCfg.BatchSize,
	)

	stopExpiration := expirationWorker.Start(ctx)
	stopStuckPayment := stuckPaymentWorker.Start(ctx)
	stopDelivery := deliveryWorker.Start(ctx)

	return func() {
		stopExpiration()
		stopStuckPayment()
		stopDelivery()
	}
}
