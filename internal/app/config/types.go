package config

import (
	"github.com/go-chi/chi/v5"
	"github.com/minio/minio-go/v7"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type (
	Bootstrap struct {
		Router         *chi.Mux
		MongoDB        *mongo.Database
		Redis          *redis.Client
		RabbitMQ       *amqp091.Connection
		Minio          *minio.Client
		Logger         *logrus.Logger
		ZapLogger      *zap.Logger
		DriverConfig   *DriverConfig
		InternalConfig *InternalConfig
	}

	DriverConfig struct {
		MongoDB  MongoDB
		Redis    Redis
		RabbitMQ RabbitMQ
		Minio    Minio
		Logger   Logger
	}

	InternalConfig struct {
		App          App
		VNPay        VNPay
		RefundPolicy RefundPolicy
		Reconciler   Reconciler
		StuckPayment StuckPayment
		Notification Notification
	}

	App struct {
		Env             string
		Port            string
		Version         string
		Address         string
		Timezone        string
		EndpointPrefix  string
		BaseUrl         string
		MaxRequests     int
		ShutdownTimeout int
	}

	MongoDB struct {
		Port     string
		Host     string
		DbName   string
		Username string
		Password string
	}

	Redis struct {
		Host     string
		Port     string
		Password string
	}

	RabbitMQ struct {
		Port     string
		Host     string
		Username string
		Password string
	}

	Minio struct {
		Port       string
		Host       string
		Username   string
		Password   string
		BucketName string
		UseSSL     bool
	}

	Logger struct {
		Level               string
		OutputFileName      string
		OutputErrorFileName string
	}

	// VNPay is the outbound gateway wire configuration. The hash secret is
	// shared with the gateway and signs every redirect, refund and query.
	VNPay struct {
		TmnCode              string
		HashSecret           string
		PayBaseUrl           string
		ApiBaseUrl           string
		ReturnUrl            string
		EnabledMethods       []string
		RequestTimeoutSecond int
		ExpireMinutes        int
	}

	// RefundTier maps a minimum lead time before the appointment to a refund
	// percentage. Tiers are evaluated from the largest lead time down.
	RefundTier struct {
		MinHoursBefore int
		Percent        int
	}

	RefundPolicy struct {
		Tiers []RefundTier
	}

	Reconciler struct {
		ScanIntervalSecond   int
		PendingMaxAgeMinute  int
		GraceWindowMinute    int
		HardDeadlineMinute   int
		BatchSize            int
		LockerKeyTTLInSecond int
	}

	StuckPayment struct {
		QueryEnabled          bool
		ScanIntervalSecond    int
		MinMinutesBeforeQuery int
		MaxHoursForQuery      int
		SafetyDaysBefore      int
		AllowOldPaymentQuery  bool
		QueriesPerSecond      float64
		BatchSize             int
	}

	Notification struct {
		QueueName            string
		DeadLetterQueueName  string
		ProviderWebhookURL   string
		JWTSecret            string
		TokenTTLInMinute     int
		HTTPTimeoutInSeconds int
		MaxRetry             int
		BatchSize            int
	}
)
