package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nqluong/appointment-project-sub001/internal/app/config"
	"github.com/nqluong/appointment-project-sub001/internal/app/contracts"
	"github.com/nqluong/appointment-project-sub001/internal/app/models"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/constvars"
	"github.com/nqluong/appointment-project-sub001/internal/pkg/exceptions"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	vnpayServiceInstance contracts.PaymentGatewayService
	onceVNPayService     sync.Once
)

// amounts on the wire are VND multiplied by 100, no decimal point
var vnpAmountScale = decimal.NewFromInt(100)

var vnpBankCodes = map[models.PaymentMethod]string{
	models.PaymentMethodVNPayQR:   constvars.VNPBankCodeQR,
	models.PaymentMethodVNPayATM:  constvars.VNPBankCodeATM,
	models.PaymentMethodVNPayIntl: constvars.VNPBankCodeIntlCard,
}

type vnpayService struct {
	Config         *config.VNPay
	Log            *zap.Logger
	Location       *time.Location
	HTTPClient     *http.Client
	enabledMethods map[models.PaymentMethod]bool
}

func NewVNPayService(cfg *config.VNPay, timezone string, logger *zap.Logger) contracts.PaymentGatewayService {
	onceVNPayService.Do(func() {
		location, err := time.LoadLocation(timezone)
		if err != nil {
			location = time.UTC
		}
		enabled := make(map[models.PaymentMethod]bool, len(cfg.EnabledMethods))
		for _, method := range cfg.EnabledMethods {
			enabled[models.PaymentMethod(method)] = true
		}
		vnpayServiceInstance = &vnpayService{
			Config:   cfg,
			Log:      logger,
			Location: location,
			HTTPClient: &http.Client{
				Timeout: time.Duration(cfg.RequestTimeoutSecond) * time.Second,
			},
			enabledMethods: enabled,
		}
	})
	return vnpayServiceInstance
}

func (s *vnpayService) Supports(method models.PaymentMethod) bool {
	if _, ok := vnpBankCodes[method]; !ok {
		return false
	}
	return s.enabledMethods[method]
}

func (s *vnpayService) BuildRedirectURL(ctx context.Context, input *contracts.BuildRedirectURLInput) (string, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	if !s.Supports(input.Payment.PaymentMethod) {
		err := exceptions.ErrPaymentMethodUnsupported(fmt.Errorf("method %s not enabled", input.Payment.PaymentMethod))
		s.Log.Error("vnpayService.BuildRedirectURL unsupported payment method",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingPaymentMethodKey, string(input.Payment.PaymentMethod)),
			zap.Error(err),
		)
		return "", err
	}

	now := input.Now.In(s.Location)
	expire := now.Add(time.Duration(s.Config.ExpireMinutes) * time.Minute)

	returnUrl := input.ReturnUrl
	if returnUrl == "" {
		returnUrl = s.Config.ReturnUrl
	}

	fields := map[string]string{
		constvars.VNPVersion:    constvars.VNPVersionValue,
		constvars.VNPCommand:    constvars.VNPCommandPay,
		constvars.VNPTmnCode:    s.Config.TmnCode,
		constvars.VNPAmount:     wireAmount(input.Payment.Amount),
		constvars.VNPCurrCode:   constvars.VNPCurrCodeVND,
		constvars.VNPTxnRef:     input.Payment.TransactionRef,
		constvars.VNPOrderInfo:  input.OrderInfo,
		constvars.VNPOrderType:  constvars.VNPOrderTypeOther,
		constvars.VNPLocale:     constvars.VNPLocaleVN,
		constvars.VNPReturnUrl:  returnUrl,
		constvars.VNPIpAddr:     input.CustomerIP,
		constvars.VNPCreateDate: now.Format(constvars.VNPDateLayout),
		constvars.VNPExpireDate: expire.Format(constvars.VNPDateLayout),
		constvars.VNPBankCode:   vnpBankCodes[input.Payment.PaymentMethod],
	}

	query := canonicalQuery(fields)
	secureHash := signFields(fields, s.Config.HashSecret)

	s.Log.Info("vnpayService.BuildRedirectURL signed redirect built",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTransactionRefKey, input.Payment.TransactionRef),
		zap.String(constvars.LoggingPaymentMethodKey, string(input.Payment.PaymentMethod)),
	)

	return fmt.Sprintf("%s?%s&%s=%s", s.Config.PayBaseUrl, query, constvars.VNPSecureHash, secureHash), nil
}

func (s *vnpayService) VerifyCallback(params map[string]string) (*contracts.CallbackResult, error) {
	receivedHash := params[constvars.VNPSecureHash]
	if receivedHash == "" {
		s.Log.Warn("vnpayService.VerifyCallback secure hash missing",
			zap.String(constvars.LoggingTransactionRefKey, params[constvars.VNPTxnRef]),
		)
		return &contracts.CallbackResult{Valid: false}, nil
	}

	signed := make(map[string]string, len(params))
	for key, value := range params {
		if key == constvars.VNPSecureHash || key == constvars.VNPSecureHashType {
			continue
		}
		signed[key] = value
	}

	if !verifySignature(signed, s.Config.HashSecret, receivedHash) {
		s.Log.Warn("vnpayService.VerifyCallback signature mismatch, possible tampering or misconfigured secret",
			zap.String(constvars.LoggingTransactionRefKey, params[constvars.VNPTxnRef]),
		)
		return &contracts.CallbackResult{Valid: false}, nil
	}

	amount, err := parseWireAmount(params[constvars.VNPAmount])
	if err != nil {
		return nil, exceptions.ErrGatewayMalformedResponse(err)
	}

	responseCode := params[constvars.VNPResponseCode]
	transactionStatus := params[constvars.VNPTransactionStatus]
	succeeded := responseCode == constvars.VNPResponseCodeSuccess
	if transactionStatus != "" {
		succeeded = succeeded && transactionStatus == constvars.VNPTransactionStatusSuccess
	}

	result := &contracts.CallbackResult{
		Valid:                true,
		TransactionRef:       params[constvars.VNPTxnRef],
		GatewayTransactionID: params[constvars.VNPTransactionNo],
		Amount:               amount,
		ResponseCode:         responseCode,
		Succeeded:            succeeded,
	}
	if raw := params[constvars.VNPPayDate]; raw != "" {
		if payDate, parseErr := time.ParseInLocation(constvars.VNPDateLayout, raw, s.Location); parseErr == nil {
			result.PayDate = &payDate
		}
	}
	return result, nil
}

func (s *vnpayService) Refund(ctx context.Context, input *contracts.RefundInput) (*contracts.RefundResult, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	now := input.Now.In(s.Location)

	transactionType := constvars.VNPTransactionTypeFullRefund
	if input.Amount.LessThan(input.Payment.Amount) {
		transactionType = constvars.VNPTransactionTypePartialRefund
	}

	fields := map[string]string{
		constvars.VNPRequestId:       uuid.NewString(),
		constvars.VNPVersion:         constvars.VNPVersionValue,
		constvars.VNPCommand:         constvars.VNPCommandRefund,
		constvars.VNPTmnCode:         s.Config.TmnCode,
		constvars.VNPTransactionType: transactionType,
		constvars.VNPTxnRef:          input.Payment.TransactionRef,
		constvars.VNPAmount:          wireAmount(input.Amount),
		constvars.VNPOrderInfo:       input.Reason,
		constvars.VNPTransactionNo:   input.Payment.GatewayTransactionID,
		constvars.VNPTransactionDate: input.TransactionDate.In(s.Location).Format(constvars.VNPDateLayout),
		constvars.VNPCreateBy:        input.RequestedBy,
		constvars.VNPCreateDate:      now.Format(constvars.VNPDateLayout),
	}
	fields[constvars.VNPSecureHash] = signFields(fields, s.Config.HashSecret)

	response, err := s.postSignedRequest(ctx, fields)
	if err != nil {
		s.Log.Error("vnpayService.Refund gateway call failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingTransactionRefKey, input.Payment.TransactionRef),
			zap.Error(err),
		)
		return nil, err
	}

	result := &contracts.RefundResult{
		RefundTransactionID: response[constvars.VNPTransactionNo],
		ResponseCode:        response[constvars.VNPResponseCode],
		Succeeded:           response[constvars.VNPResponseCode] == constvars.VNPResponseCodeSuccess,
	}
	s.Log.Info("vnpayService.Refund gateway answered",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTransactionRefKey, input.Payment.TransactionRef),
		zap.String(constvars.LoggingResponseCodeKey, result.ResponseCode),
	)
	return result, nil
}

func (s *vnpayService) QueryTransaction(ctx context.Context, input *contracts.QueryInput) (*contracts.QueryResult, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	now := input.Now.In(s.Location)

	fields := map[string]string{
		constvars.VNPRequestId:       uuid.NewString(),
		constvars.VNPVersion:         constvars.VNPVersionValue,
		constvars.VNPCommand:         constvars.VNPCommandQueryDR,
		constvars.VNPTmnCode:         s.Config.TmnCode,
		constvars.VNPTxnRef:          input.TransactionRef,
		constvars.VNPOrderInfo:       fmt.Sprintf("query transaction %s", input.TransactionRef),
		constvars.VNPTransactionDate: input.TransactionDate.In(s.Location).Format(constvars.VNPDateLayout),
		constvars.VNPCreateDate:      now.Format(constvars.VNPDateLayout),
	}
	fields[constvars.VNPSecureHash] = signFields(fields, s.Config.HashSecret)

	response, err := s.postSignedRequest(ctx, fields)
	if err != nil {
		s.Log.Error("vnpayService.QueryTransaction gateway call failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingTransactionRefKey, input.TransactionRef),
			zap.Error(err),
		)
		return nil, err
	}

	responseCode := response[constvars.VNPResponseCode]
	transactionStatus := response[constvars.VNPTransactionStatus]

	result := &contracts.QueryResult{
		TransactionRef:       input.TransactionRef,
		GatewayTransactionID: response[constvars.VNPTransactionNo],
		ResponseCode:         responseCode,
		Succeeded:            responseCode == constvars.VNPResponseCodeSuccess && transactionStatus == constvars.VNPTransactionStatusSuccess,
		Pending:              responseCode == constvars.VNPResponseCodePending || transactionStatus == constvars.VNPTransactionStatusPending,
	}
	if raw := response[constvars.VNPAmount]; raw != "" {
		amount, parseErr := parseWireAmount(raw)
		if parseErr != nil {
			return nil, exceptions.ErrGatewayMalformedResponse(parseErr)
		}
		result.Amount = amount
	}
	if raw := response[constvars.VNPPayDate]; raw != "" {
		if payDate, parseErr := time.ParseInLocation(constvars.VNPDateLayout, raw, s.Location); parseErr == nil {
			result.PayDate = &payDate
		}
	}

	s.Log.Info("vnpayService.QueryTransaction gateway answered",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingTransactionRefKey, input.TransactionRef),
		zap.String(constvars.LoggingResponseCodeKey, responseCode),
	)
	return result, nil
}

func (s *vnpayService) postSignedRequest(ctx context.Context, fields map[string]string) (map[string]string, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, exceptions.ErrGatewayUnavailable(err)
	}

	request, err := http.NewRequestWithContext(ctx, constvars.MethodPost, s.Config.ApiBaseUrl, bytes.NewReader(body))
	if err != nil {
		return nil, exceptions.ErrGatewayUnavailable(err)
	}
	request.Header.Set(constvars.HeaderContentType, constvars.MIMEApplicationJSON)

	httpResponse, err := s.HTTPClient.Do(request)
	if err != nil {
		return nil, exceptions.ErrGatewayUnavailable(err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode >= constvars.StatusInternalServerError {
		return nil, exceptions.ErrGatewayUnavailable(fmt.Errorf("gateway returned status %d", httpResponse.StatusCode))
	}

	response := make(map[string]string)
	if err := json.NewDecoder(httpResponse.Body).Decode(&response); err != nil {
		return nil, exceptions.ErrGatewayMalformedResponse(err)
	}
	return response, nil
}

func wireAmount(amount decimal.Decimal) string {
	return amount.Mul(vnpAmountScale).Truncate(0).String()
}

func parseWireAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("missing %s field", constvars.VNPAmount)
	}
	scaled, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed %s value %q", constvars.VNPAmount, raw)
	}
	return scaled.Div(vnpAmountScale), nil
}
