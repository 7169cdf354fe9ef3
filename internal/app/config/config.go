package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/utils"
)

func init() {
	godotenv.Load()
}

func NewDriverConfig() *DriverConfig {
	return &DriverConfig{
		MongoDB: MongoDB{
			Port:     utils.GetEnvString("MONGODB_PORT", "27017"),
			Host:     utils.GetEnvString("MONGODB_HOST", "localhost"),
			DbName:   utils.GetEnvString("MONGODB_DB_NAME", "appointment_payments"),
			Username: utils.GetEnvString("MONGODB_USERNAME", "defaultUsername"),
			Password: utils.GetEnvString("MONGODB_PASSWORD", "defaultPassword"),
		},
		Redis: Redis{
			Host:     utils.GetEnvString("REDIS_HOST", "localhost"),
			Port:     utils.GetEnvString("REDIS_PORT", "6379"),
			Password: utils.GetEnvString("REDIS_PASSWORD", ""),
		},
		RabbitMQ: RabbitMQ{
			Port:     utils.GetEnvString("RABBITMQ_PORT", "5672"),
			Host:     utils.GetEnvString("RABBITMQ_HOST", "localhost"),
			Username: utils.GetEnvString("RABBITMQ_USERNAME", "defaultUsername"),
			Password: utils.GetEnvString("RABBITMQ_PASSWORD", "defaultPassword"),
		},
		Minio: Minio{
			Port:       utils.GetEnvString("MINIO_PORT", "9000"),
			Host:       utils.GetEnvString("MINIO_HOST", "localhost"),
			Username:   utils.GetEnvString("MINIO_USERNAME", "defaultUsername"),
			Password:   utils.GetEnvString("MINIO_PASSWORD", "defaultPassword"),
			BucketName: utils.GetEnvString("MINIO_BUCKET_NAME", "payment-callback-audit"),
			UseSSL:     utils.GetEnvBool("MINIO_USE_SSL", false),
		},
		Logger: Logger{
			Level:               utils.GetEnvString("LOGGER_LEVEL", "debug"),
			OutputFileName:      utils.GetEnvString("LOGGER_OUTPUT_FILENAME", "logger.log"),
			OutputErrorFileName: utils.GetEnvString("LOGGER_OUTPUT_ERROR_FILENAME", "logger_error.log"),
		},
	}
}

func NewInternalConfig() *InternalConfig {
	return &InternalConfig{
		App: App{
			Env:             utils.GetEnvString("APP_ENV", "development"),
			Port:            utils.GetEnvString("APP_PORT", ":8080"),
			Version:         utils.GetEnvString("APP_VERSION", "v1"),
			Address:         utils.GetEnvString("APP_ADDRESS", "localhost"),
			Timezone:        utils.GetEnvString("APP_TIMEZONE", "Asia/Ho_Chi_Minh"),
			EndpointPrefix:  utils.GetEnvString("APP_ENDPOINT_PREFIX", "api"),
			BaseUrl:         utils.GetEnvString("APP_BASE_URL", "http://localhost:8080"),
			MaxRequests:     utils.GetEnvInt("APP_MAX_REQUEST", 50),
			ShutdownTimeout: utils.GetEnvInt("APP_SHUTDOWN_TIMEOUT", 10),
		},
		VNPay: VNPay{
			TmnCode:              utils.GetEnvString("VNPAY_TMN_CODE", ""),
			HashSecret:           utils.GetEnvString("VNPAY_HASH_SECRET", ""),
			PayBaseUrl:           utils.GetEnvString("VNPAY_PAY_BASE_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ApiBaseUrl:           utils.GetEnvString("VNPAY_API_BASE_URL", "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"),
			ReturnUrl:            utils.GetEnvString("VNPAY_RETURN_URL", "http://localhost:8080/api/v1/payments/vnpay-return"),
			EnabledMethods:       splitCSV(utils.GetEnvString("VNPAY_ENABLED_METHODS", "vnpay_qr,vnpay_atm,vnpay_intl_card")),
			RequestTimeoutSecond: utils.GetEnvInt("VNPAY_REQUEST_TIMEOUT_IN_SECOND", 15),
			ExpireMinutes:        utils.GetEnvInt("VNPAY_EXPIRE_MINUTES", 15),
		},
		RefundPolicy: RefundPolicy{
			Tiers: parseRefundTiers(utils.GetEnvString("REFUND_POLICY_TIERS", "48:100,24:50,0:0")),
		},
		Reconciler: Reconciler{
			ScanIntervalSecond:   utils.GetEnvInt("RECONCILER_SCAN_INTERVAL_IN_SECOND", 60),
			PendingMaxAgeMinute:  utils.GetEnvInt("RECONCILER_PENDING_MAX_AGE_IN_MINUTE", 15),
			GraceWindowMinute:    utils.GetEnvInt("RECONCILER_GRACE_WINDOW_IN_MINUTE", 10),
			HardDeadlineMinute:   utils.GetEnvInt("RECONCILER_HARD_DEADLINE_IN_MINUTE", 30),
			BatchSize:            utils.GetEnvInt("RECONCILER_BATCH_SIZE", 100),
			LockerKeyTTLInSecond: utils.GetEnvInt("RECONCILER_LOCK_TTL_IN_SECOND", 55),
		},
		StuckPayment: StuckPayment{
			QueryEnabled:          utils.GetEnvBool("STUCK_PAYMENT_QUERY_ENABLED", true),
			ScanIntervalSecond:    utils.GetEnvInt("STUCK_PAYMENT_SCAN_INTERVAL_IN_SECOND", 300),
			MinMinutesBeforeQuery: utils.GetEnvInt("STUCK_PAYMENT_MIN_MINUTES_BEFORE_QUERY", 5),
			MaxHoursForQuery:      utils.GetEnvInt("STUCK_PAYMENT_MAX_HOURS_FOR_QUERY", 24),
			SafetyDaysBefore:      utils.GetEnvInt("STUCK_PAYMENT_SAFETY_DAYS_BEFORE", 7),
			AllowOldPaymentQuery:  utils.GetEnvBool("STUCK_PAYMENT_ALLOW_OLD_PAYMENT_QUERY", false),
			QueriesPerSecond:      utils.GetEnvFloat("STUCK_PAYMENT_QUERIES_PER_SECOND", 2),
			BatchSize:             utils.GetEnvInt("STUCK_PAYMENT_BATCH_SIZE", 50),
		},
		Notification: Notification{
			QueueName:            utils.GetEnvString("NOTIFICATION_QUEUE_NAME", "payment_notification_queue"),
			DeadLetterQueueName:  utils.GetEnvString("NOTIFICATION_DLQ_NAME", "payment_notification_dlq"),
			ProviderWebhookURL:   utils.GetEnvString("NOTIFICATION_PROVIDER_WEBHOOK_URL", ""),
			JWTSecret:            utils.GetEnvString("NOTIFICATION_JWT_SECRET", "anyjwt"),
			TokenTTLInMinute:     utils.GetEnvInt("NOTIFICATION_TOKEN_TTL_IN_MINUTE", 5),
			HTTPTimeoutInSeconds: utils.GetEnvInt("NOTIFICATION_HTTP_TIMEOUT_IN_SECONDS", 10),
			MaxRetry:             utils.GetEnvInt("NOTIFICATION_MAX_RETRY", 5),
			BatchSize:            utils.GetEnvInt("NOTIFICATION_BATCH_SIZE", 10),
		},
	}
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseRefundTiers reads "48:100,24:50,0:0" into tiers sorted by lead time
// descending. Malformed segments are skipped so one bad entry never disables
// the whole policy.
func parseRefundTiers(raw string) []RefundTier {
	var tiers []RefundTier
	for _, part := range strings.Split(raw, ",") {
		fields := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(fields) != 2 {
			continue
		}
		hours, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		percent, err := strconv.Atoi(fields[1])
		if err != nil || percent < 0 || percent > 100 {
			continue
		}
		tiers = append(tiers, RefundTier{MinHoursBefore: hours, Percent: percent})
	}
	sort.Slice(tiers, func(i, j int) bool {
		return tiers[i].MinHoursBefore > tiers[j].MinHoursBefore
	})
	return tiers
}
