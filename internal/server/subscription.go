package server

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/smallbiznis/relaypay/internal/subscription/domain"
)

type changePlanRequest struct {
	PlanID int64 `json:"plan_id"`
}

type changePaymentInfoRequest struct {
	PlanID       int64           `json:"plan_id"`
	EndTime      int64           `json:"end_time"`
	PaymentToken common.Address  `json:"payment_token"`
	SwapFee      decimal.Decimal `json:"swap_fee"`
}

func (s *Server) Subscribe(c *gin.Context) {
	var req subscriptiondomain.SubscribeRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.subscriptionSvc.Subscribe(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UnSubscribe(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	resp, err := s.subscriptionSvc.UnSubscribe(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ChangeSubscriptionPlan(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req changePlanRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.subscriptionSvc.ChangeSubscriptionPlan(c.Request.Context(), id, req.PlanID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ChangeSubscriptionPaymentInfo(c *gin.Context) {
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req changePaymentInfoRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := s.subscriptionSvc.ChangeSubscriptionPlanPaymentInfo(c.Request.Context(), subscriptiondomain.ChangePaymentInfoRequest{
		SubscriptionID: id,
		NewPlanID:      req.PlanID,
		EndTime:        req.EndTime,
		PaymentToken:   req.PaymentToken,
		SwapFee:        req.SwapFee,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscription(c *gin.Context) {
	subscriber, ok := addressParam(c, "subscriber")
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}

	resp, err := s.subscriptionSvc.Get(c.Request.Context(), subscriber, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	subscriber, ok := addressParam(c, "subscriber")
	if !ok {
		return
	}

	resp, err := s.subscriptionSvc.List(c.Request.Context(), subscriber)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSubscriptionNonce(c *gin.Context) {
	subscriber, ok := addressParam(c, "subscriber")
	if !ok {
		return
	}

	nonce, err := s.subscriptionSvc.Nonce(c.Request.Context(), subscriber)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"nonce": nonce}})
}

func (s *Server) GetSubscribedToProduct(c *gin.Context) {
	subscriber, ok := addressParam(c, "subscriber")
	if !ok {
		return
	}
	productID, ok := int64Param(c, "productId")
	if !ok {
		return
	}

	subscribed, err := s.subscriptionSvc.SubscribedToProduct(c.Request.Context(), subscriber, productID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"subscriber": subscriber,
		"product_id": productID,
		"subscribed": subscribed,
	}})
}
