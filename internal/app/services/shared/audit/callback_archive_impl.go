package audit

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	"go.uber.org/zap"
)

var (
	callbackArchiveInstance contracts.CallbackArchive
	onceCallbackArchive     sync.Once
)

type minioCallbackArchive struct {
	MinioClient *minio.Client
	BucketName  string
	Log         *zap.Logger
}

func NewMinioCallbackArchive(minioClient *minio.Client, bucketName string, log *zap.Logger) contracts.CallbackArchive {
	onceCallbackArchive.Do(func() {
		callbackArchiveInstance = &minioCallbackArchive{
			MinioClient: minioClient,
			BucketName:  bucketName,
			Log:         log,
		}
	})
	return callbackArchiveInstance
}

// ArchiveCallback stores the raw parameter set of one verified callback as a
// JSON object. Object names embed the receive instant so replays of the same
// transaction never overwrite each other.
func (a *minioCallbackArchive) ArchiveCallback(ctx context.Context, transactionRef string, params map[string]string) error {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	payload, err := json.Marshal(params)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	objectName := fmt.Sprintf("callbacks/%s/%s.json", transactionRef, time.Now().UTC().Format("20060102T150405.000000000Z"))
	_, err = a.MinioClient.PutObject(ctx, a.BucketName, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: constvars.MIMEApplicationJSON,
	})
	if err != nil {
		a.Log.Error("minioCallbackArchive.ArchiveCallback failed to store object",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingTransactionRefKey, transactionRef),
			zap.Error(err),
		)
		return exceptions.ErrMinioCreateObject(err, a.BucketName)
	}

	a.Log.Info("minioCallbackArchive.ArchiveCallback stored callback payload",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTransactionRefKey, transactionRef),
	)
	return nil
}
