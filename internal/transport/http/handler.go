package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/pix-settlement/internal/apperr"
	"github.com/richardliu001/pix-settlement/internal/money"
	"github.com/richardliu001/pix-settlement/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Charges *service.ChargeService
	Payouts *service.PayoutService
	Wallets *service.WalletService
}

func RegisterHandlers(r *gin.Engine, svc Services, log *zap.SugaredLogger) {
	v1 := r.Group("/v1")
	{
		v1.POST("/charges", chargeHandler(svc.Charges))
		v1.GET("/charges/:id/status", statusHandler(svc.Charges))
		v1.POST("/charges/:id/status", statusHandler(svc.Charges))
		v1.POST("/callbacks/:provider", callbackHandler(svc.Charges, log))
		v1.POST("/payouts", payoutHandler(svc.Payouts))
		v1.GET("/wallets/:user_id/balance", balanceHandler(svc.Wallets))
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{"status": false, "code": apperr.CodeOf(err), "error": err.Error()})
}

type chargeReq struct {
	UserID        uint64 `json:"user_id" binding:"required"`
	Amount        string `json:"amount" binding:"required"`
	PayerDocument string `json:"payer_document" binding:"required"`
}

func chargeHandler(svc *service.ChargeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chargeReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": false, "error": err.Error()})
			return
		}
		amt, err := money.Parse(req.Amount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": false, "error": "invalid amount"})
			return
		}
		res, err := svc.RequestCharge(c, service.ChargeInput{
			UserID: req.UserID, Amount: amt, PayerDocument: req.PayerDocument,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      true,
			"provider":    res.Provider,
			"external_id": res.ExternalID,
			"payload":     res.Payload,
		})
	}
}

// statusHandler answers PAID with 200 and any other provider code with 400.
func statusHandler(svc *service.ChargeService) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.ConsultStatus(c, c.Query("provider"), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		if !res.Paid() {
			c.JSON(http.StatusBadRequest, gin.H{"status": res.Code})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": res.Code})
	}
}

func callbackHandler(svc *service.ChargeService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		res, err := svc.HandleCallback(c, provider, body)
		if err != nil {
			log.Warnw("callback failed", "provider", provider, "error", err)
			writeError(c, err)
			return
		}
		if res.Outcome == service.OutcomeNotFound {
			log.Infow("callback for unknown payment", "provider", provider, "payment_id", res.ExternalID)
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

type payoutReq struct {
	DestinationKey string `json:"destination_key" binding:"required"`
	KeyType        string `json:"key_type"`
	Amount         string `json:"amount"`
	LocalRecordID  uint64 `json:"local_record_id" binding:"required"`
}

func payoutHandler(svc *service.PayoutService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payoutReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": false, "error": err.Error()})
			return
		}
		amt := decimal.Zero
		if req.Amount != "" {
			var err error
			if amt, err = money.Parse(req.Amount); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"status": false, "error": "invalid amount"})
				return
			}
		}
		out, err := svc.RequestPayout(c, req.LocalRecordID,
			service.Destination{Key: req.DestinationKey, KeyType: req.KeyType}, amt)
		if err != nil {
			writeError(c, err)
			return
		}
		if out != service.PayoutConfirmed {
			c.JSON(http.StatusBadRequest, gin.H{"status": out})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": out})
	}
}

func balanceHandler(svc *service.WalletService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		bal, err := svc.GetBalance(c, id)
		if err != nil {
			writeError(c, err)
			return
		}
		w, err := svc.GetWallet(c, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"balance":       bal.StringFixed(2),
			"balance_bonus": w.BalanceBonus.StringFixed(2),
			"refer_rewards": w.ReferRewards.StringFixed(2),
		})
	}
}
