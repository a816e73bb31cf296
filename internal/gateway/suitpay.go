package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/richardliu001/pix-settlement/internal/apperr"
	"github.com/richardliu001/pix-settlement/internal/config"
	"github.com/richardliu001/pix-settlement/internal/money"
	"go.uber.org/zap"
)

const SuitpayName = "suitpay"

// Suitpay authenticates every call with static ci/cs headers and takes
// amounts in decimal reais.
type Suitpay struct {
	http         jsonClient
	clientID     string
	clientSecret string
	now          func() time.Time
	log          *zap.SugaredLogger
}

func NewSuitpay(cfg config.SuitpayConfig, client *http.Client, log *zap.SugaredLogger) *Suitpay {
	return &Suitpay{
		http:         newJSONClient(SuitpayName, cfg.BaseURL, client, log),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		now:          time.Now,
		log:          log,
	}
}

func (s *Suitpay) Name() string { return SuitpayName }

// Authenticate has nothing to exchange; it only checks the credentials are set.
func (s *Suitpay) Authenticate(context.Context) (Token, error) {
	if s.clientID == "" || s.clientSecret == "" {
		return Token{}, apperr.AuthenticationFailed("suitpay credentials not configured", nil)
	}
	return Token{Value: s.clientID}, nil
}

func (s *Suitpay) headers(ctx context.Context) (http.Header, error) {
	if _, err := s.Authenticate(ctx); err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("ci", s.clientID)
	h.Set("cs", s.clientSecret)
	return h, nil
}

type suitpayClient struct {
	Name        string `json:"name"`
	Document    string `json:"document"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
}

type suitpayQrcodeReq struct {
	RequestNumber    string        `json:"requestNumber"`
	DueDate          string        `json:"dueDate"`
	Amount           float64       `json:"amount"`
	ShippingAmount   float64       `json:"shippingAmount"`
	UsernameCheckout string        `json:"usernameCheckout"`
	CallbackURL      string        `json:"callbackUrl"`
	Client           suitpayClient `json:"client"`
}

type suitpayQrcodeResp struct {
	IDTransaction string `json:"idTransaction"`
	PaymentCode   string `json:"paymentCode"`
}

func (s *Suitpay) RequestCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	h, err := s.headers(ctx)
	if err != nil {
		return nil, err
	}
	body := suitpayQrcodeReq{
		RequestNumber:    uuid.NewString(),
		DueDate:          s.now().Add(24 * time.Hour).Format("2006-01-02"),
		Amount:           money.Prepare(req.Amount).InexactFloat64(),
		UsernameCheckout: "checkout",
		CallbackURL:      req.CallbackURL,
		Client: suitpayClient{
			Name:        req.Payer.Name,
			Document:    money.Digits(req.Payer.Document),
			PhoneNumber: money.Digits(req.Payer.Phone),
			Email:       req.Payer.Email,
		},
	}
	var out suitpayQrcodeResp
	if err := s.http.do(ctx, http.MethodPost, "gateway/request-qrcode", h, body, &out); err != nil {
		return nil, err
	}
	if out.IDTransaction == "" {
		return nil, apperr.GatewayUnavailable("suitpay: charge without idTransaction", nil)
	}
	return &Charge{ExternalID: out.IDTransaction, Payload: out.PaymentCode}, nil
}

type suitpayConsultReq struct {
	TypeTransaction string `json:"typeTransaction"`
	IDTransaction   string `json:"idTransaction"`
}

// QueryStatus answers with a bare JSON string such as "PAID_OUT".
func (s *Suitpay) QueryStatus(ctx context.Context, externalID string) (RawStatus, error) {
	h, err := s.headers(ctx)
	if err != nil {
		return RawStatus{}, err
	}
	var code string
	if err := s.http.do(ctx, http.MethodPost, "gateway/consult-status-transaction", h,
		suitpayConsultReq{TypeTransaction: "PIX", IDTransaction: externalID}, &code); err != nil {
		return RawStatus{}, err
	}
	return RawStatus{Code: code, Status: suitpayStatus(code)}, nil
}

func suitpayStatus(code string) Status {
	switch code {
	case "PAID_OUT", "PAYMENT_ACCEPT":
		return StatusSettled
	case "CANCELED", "CHARGEBACK", "EXPIRED", "REFUSED":
		return StatusRejected
	default:
		return StatusPending
	}
}

type suitpayPixPaymentReq struct {
	Key         string  `json:"key"`
	TypeKey     string  `json:"typeKey"`
	Value       float64 `json:"value"`
	CallbackURL string  `json:"callbackUrl"`
}

type suitpayPixPaymentResp struct {
	Response      string `json:"response"`
	IDTransaction string `json:"idTransaction"`
}

func (s *Suitpay) RequestPayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error) {
	h, err := s.headers(ctx)
	if err != nil {
		return nil, err
	}
	var out suitpayPixPaymentResp
	if err := s.http.do(ctx, http.MethodPost, "gateway/pix-payment", h, suitpayPixPaymentReq{
		Key:         req.Key,
		TypeKey:     req.KeyType,
		Value:       money.Prepare(req.Amount).InexactFloat64(),
		CallbackURL: req.CallbackURL,
	}, &out); err != nil {
		return nil, err
	}
	res := &PayoutResult{ExternalID: out.IDTransaction, Proof: out.IDTransaction, Code: out.Response, Outcome: StatusRejected}
	if out.Response == "OK" {
		res.Outcome = StatusSettled
	}
	return res, nil
}

func (s *Suitpay) CallbackID(body []byte) (string, error) {
	var cb struct {
		IDTransaction string `json:"idTransaction"`
	}
	if err := json.Unmarshal(body, &cb); err != nil {
		return "", apperr.ValidationFailed(fmt.Sprintf("suitpay callback: %v", err))
	}
	if cb.IDTransaction == "" {
		return "", apperr.ValidationFailed("suitpay callback: missing idTransaction")
	}
	return cb.IDTransaction, nil
}
