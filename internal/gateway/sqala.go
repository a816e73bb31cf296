package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/richardliu001/pix-settlement/internal/apperr"
	"github.com/richardliu001/pix-settlement/internal/config"
	"github.com/richardliu001/pix-settlement/internal/money"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const SqalaName = "sqala"

// Sqala exchanges its refresh token for a bearer token, cached until expiry
// or until the API answers 401. Amounts travel in cents.
type Sqala struct {
	http         jsonClient
	appID        string
	refreshToken string
	cache        TokenCache
	ttl          time.Duration
	group        singleflight.Group
	now          func() time.Time
	log          *zap.SugaredLogger
}

func NewSqala(cfg config.SqalaConfig, client *http.Client, cache TokenCache, ttl time.Duration, log *zap.SugaredLogger) *Sqala {
	if cache == nil {
		cache = NewMemoryTokenCache()
	}
	return &Sqala{
		http:         newJSONClient(SqalaName, cfg.BaseURL, client, log),
		appID:        cfg.AppID,
		refreshToken: cfg.RefreshToken,
		cache:        cache,
		ttl:          ttl,
		now:          time.Now,
		log:          log,
	}
}

func (s *Sqala) Name() string { return SqalaName }

// Authenticate returns the cached token or refreshes it.
func (s *Sqala) Authenticate(ctx context.Context) (Token, error) {
	tok, ok, err := s.cache.Get(ctx, SqalaName)
	if err != nil {
		s.log.Warnw("token cache read failed", "provider", SqalaName, "error", err)
	}
	if ok {
		return tok, nil
	}
	return s.Refresh(ctx)
}

type sqalaTokenReq struct {
	RefreshToken string `json:"refreshToken"`
}

type sqalaTokenResp struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Refresh always fetches a new token; concurrent callers share one request.
func (s *Sqala) Refresh(ctx context.Context) (Token, error) {
	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		if s.appID == "" || s.refreshToken == "" {
			return Token{}, apperr.AuthenticationFailed("sqala credentials not configured", nil)
		}
		h := http.Header{}
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(s.appID+":"+s.refreshToken)))
		var out sqalaTokenResp
		if err := s.http.do(ctx, http.MethodPost, "access-tokens", h, sqalaTokenReq{RefreshToken: s.refreshToken}, &out); err != nil {
			return Token{}, apperr.AuthenticationFailed("sqala token refresh", err)
		}
		if out.Token == "" {
			return Token{}, apperr.AuthenticationFailed("sqala returned an empty token", nil)
		}
		ttl := s.ttl
		if out.ExpiresIn > 0 {
			ttl = time.Duration(out.ExpiresIn) * time.Second
		}
		tok := Token{Value: out.Token}
		if ttl > 0 {
			tok.ExpiresAt = s.now().Add(ttl)
		}
		if err := s.cache.Set(ctx, SqalaName, tok); err != nil {
			s.log.Warnw("token cache write failed", "provider", SqalaName, "error", err)
		}
		return tok, nil
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}

// authorized calls the API with the bearer token, refreshing once on 401.
func (s *Sqala) authorized(ctx context.Context, method, path string, in, out interface{}) error {
	tok, err := s.Authenticate(ctx)
	if err != nil {
		return err
	}
	err = s.http.do(ctx, method, path, bearer(tok), in, out)
	var httpErr *HTTPError
	if err == nil || !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized {
		return err
	}
	if err := s.cache.Invalidate(ctx, SqalaName); err != nil {
		s.log.Warnw("token cache invalidate failed", "provider", SqalaName, "error", err)
	}
	tok, err = s.Refresh(ctx)
	if err != nil {
		return err
	}
	return s.http.do(ctx, method, path, bearer(tok), in, out)
}

func bearer(tok Token) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+tok.Value)
	return h
}

type sqalaChargeReq struct {
	Amount int64 `json:"amount"`
}

type sqalaPayment struct {
	ID      string `json:"id"`
	Payload string `json:"payload"`
	Status  string `json:"status"`
}

func (s *Sqala) RequestCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	var out sqalaPayment
	if err := s.authorized(ctx, http.MethodPost, "pix-qrcode-payments",
		sqalaChargeReq{Amount: money.ToCents(req.Amount)}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, apperr.GatewayUnavailable("sqala: charge without id", nil)
	}
	return &Charge{ExternalID: out.ID, Payload: out.Payload}, nil
}

func (s *Sqala) QueryStatus(ctx context.Context, externalID string) (RawStatus, error) {
	var out sqalaPayment
	if err := s.authorized(ctx, http.MethodGet, "pix-qrcode-payments/"+url.PathEscape(externalID), nil, &out); err != nil {
		return RawStatus{}, err
	}
	return RawStatus{Code: out.Status, Status: sqalaStatus(out.Status)}, nil
}

func sqalaStatus(code string) Status {
	switch code {
	case "PROCESSED":
		return StatusSettled
	case "FAILED", "CANCELED", "EXPIRED", "REFUNDED":
		return StatusRejected
	default:
		return StatusPending
	}
}

type sqalaWithdrawalReq struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
	PixKey string `json:"pixKey"`
}

type sqalaWithdrawalResp struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *Sqala) RequestPayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error) {
	var out sqalaWithdrawalResp
	if err := s.authorized(ctx, http.MethodPost, "recipients/DEFAULT/withdrawal", sqalaWithdrawalReq{
		Amount: money.ToCents(req.Amount),
		Method: "PIX",
		PixKey: req.Key,
	}, &out); err != nil {
		return nil, err
	}
	return &PayoutResult{ExternalID: out.ID, Proof: out.ID, Code: out.Status, Outcome: sqalaStatus(out.Status)}, nil
}

// CallbackID accepts both {"id":...} and {"data":{"id":...}} bodies.
func (s *Sqala) CallbackID(body []byte) (string, error) {
	var cb struct {
		ID   string `json:"id"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &cb); err != nil {
		return "", apperr.ValidationFailed(fmt.Sprintf("sqala callback: %v", err))
	}
	if cb.Data.ID != "" {
		return cb.Data.ID, nil
	}
	if cb.ID != "" {
		return cb.ID, nil
	}
	return "", apperr.ValidationFailed("sqala callback: missing id")
}
