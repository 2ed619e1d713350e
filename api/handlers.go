package api

import (
	"net/http"
	"strconv"

	"blocklucky/models"
	"blocklucky/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// HTTPHandler holds the dependencies for the HTTP handlers
type HTTPHandler struct {
	lottery   service.LotteryService
	accounts  service.AccountService
	lotteryID int64
}

// NewHTTPHandler creates a new HTTPHandler
func NewHTTPHandler(lottery service.LotteryService, accounts service.AccountService, lotteryID int64) *HTTPHandler {
	return &HTTPHandler{
		lottery:   lottery,
		accounts:  accounts,
		lotteryID: lotteryID,
	}
}

// RegisterRoutes registers the lottery and account routes
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")

	lottery := api.Group("/lottery")
	lottery.GET("", h.GetLottery)
	lottery.GET("/info", h.GetLotteryInfo)
	lottery.GET("/participants", h.GetParticipants)
	lottery.GET("/participants/:address", h.GetParticipant)
	lottery.GET("/price", h.GetPrice)
	lottery.GET("/events", h.GetEvents)
	lottery.POST("/tickets", h.BuyTickets)
	lottery.POST("/reset", h.ResetLottery)
	lottery.POST("/withdraw", h.EmergencyWithdraw)

	api.GET("/accounts/:address", h.GetAccount)
}

// signedCall is the body shared by every state-changing request
type signedCall struct {
	From      string  `json:"from" binding:"required"`
	Value     string  `json:"value"`
	Nonce     *uint64 `json:"nonce" binding:"required"`
	Signature string  `json:"signature" binding:"required"`
}

type buyTicketsRequest struct {
	signedCall
	Quantity *uint64 `json:"quantity"`
}

type resetRequest struct {
	signedCall
	NewMinParticipants uint64 `json:"newMinParticipants"`
}

// verify authenticates the request and converts it to a service call
func (h *HTTPHandler) verify(req signedCall, action, args string) (service.Call, error) {
	if !common.IsHexAddress(req.From) {
		return service.Call{}, models.ErrInvalidSignature
	}
	from := common.HexToAddress(req.From)

	value := "0"
	if req.Value != "" {
		value = req.Value
	}
	wei, err := models.ParseWei(value)
	if err != nil {
		return service.Call{}, models.ErrInvalidAmount
	}

	message := CallMessage(h.lotteryID, action, args, wei, *req.Nonce)
	if err := VerifyCall(from, message, req.Signature); err != nil {
		return service.Call{}, err
	}

	return service.Call{From: from, Value: wei, Nonce: req.Nonce}, nil
}

// GetLottery returns the full lottery state
func (h *HTTPHandler) GetLottery(c *gin.Context) {
	lottery, err := h.lottery.GetLottery(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newLotteryView(lottery))
}

// GetLotteryInfo returns the info tuple
func (h *HTTPHandler) GetLotteryInfo(c *gin.Context) {
	info, err := h.lottery.GetLotteryInfo(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newInfoView(info))
}

// GetParticipants lists the round's participants in purchase order
func (h *HTTPHandler) GetParticipants(c *gin.Context) {
	participants, err := h.lottery.GetAllParticipants(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// GetParticipant reports whether an address joined and how many tickets it holds
func (h *HTTPHandler) GetParticipant(c *gin.Context) {
	address, ok := pathAddress(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	joined, err := h.lottery.HasParticipated(ctx, address)
	if err != nil {
		h.fail(c, err)
		return
	}
	tickets, err := h.lottery.TicketsByAddress(ctx, address)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":         address,
		"hasParticipated": joined,
		"tickets":         tickets,
	})
}

// GetPrice quotes a batch purchase
func (h *HTTPHandler) GetPrice(c *gin.Context) {
	quantity, err := strconv.ParseUint(c.DefaultQuery("quantity", "1"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be a positive integer"})
		return
	}

	quote, err := h.lottery.CalculatePrice(c.Request.Context(), quantity)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, quoteView{
		Quantity:        quote.Quantity,
		TotalPrice:      quote.TotalPrice.String(),
		TotalPriceEther: models.FormatEther(quote.TotalPrice),
		DiscountPercent: quote.DiscountPercent,
	})
}

// GetEvents pages through the event log
func (h *HTTPHandler) GetEvents(c *gin.Context) {
	after, err := strconv.ParseInt(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "after must be an integer"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	entries, err := h.lottery.GetEvents(c.Request.Context(), after, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if entries == nil {
		entries = []*models.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"events": entries})
}

// BuyTickets buys one ticket, or a discounted batch when quantity is given
func (h *HTTPHandler) BuyTickets(c *gin.Context) {
	var req buyTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	action, args := ActionBuyTicket, ""
	if req.Quantity != nil {
		action, args = ActionBuyTickets, strconv.FormatUint(*req.Quantity, 10)
	}

	call, err := h.verify(req.signedCall, action, args)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	var receipt *service.PurchaseReceipt
	if req.Quantity == nil {
		receipt, err = h.lottery.BuyTicket(ctx, call)
	} else {
		receipt, err = h.lottery.BuyTickets(ctx, call, *req.Quantity)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newReceiptView(receipt))
}

// ResetLottery opens a new round
func (h *HTTPHandler) ResetLottery(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	call, err := h.verify(req.signedCall, ActionResetLottery, strconv.FormatUint(req.NewMinParticipants, 10))
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.lottery.ResetLottery(c.Request.Context(), call, req.NewMinParticipants); err != nil {
		h.fail(c, err)
		return
	}

	h.respondInfo(c)
}

// EmergencyWithdraw drains the pot to the owner
func (h *HTTPHandler) EmergencyWithdraw(c *gin.Context) {
	var req signedCall
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	call, err := h.verify(req, ActionEmergencyWithdraw, "")
	if err != nil {
		h.fail(c, err)
		return
	}

	amount, err := h.lottery.EmergencyWithdraw(c.Request.Context(), call)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"amount":      amount.String(),
		"amountEther": models.FormatEther(amount),
	})
}

// GetAccount returns an account with its recent history
func (h *HTTPHandler) GetAccount(c *gin.Context) {
	address, ok := pathAddress(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("history", "10"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "history must be a non-negative integer"})
		return
	}

	ctx := c.Request.Context()
	account, err := h.accounts.GetAccount(ctx, address)
	if err != nil {
		h.fail(c, err)
		return
	}

	var history []*models.BalanceHistory
	if limit > 0 {
		history, err = h.accounts.GetHistory(ctx, address, limit)
		if err != nil {
			h.fail(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, newAccountView(account, history))
}

func (h *HTTPHandler) respondInfo(c *gin.Context) {
	info, err := h.lottery.GetLotteryInfo(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newInfoView(info))
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status, reason := statusForError(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": reason})
}

func pathAddress(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
