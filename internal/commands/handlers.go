package commands

import (
	"github.com/gin-gonic/gin"

	"github.com/ksred/coinkong/pkg/middleware"
	"github.com/ksred/coinkong/pkg/response"
)

// SwapRequest is the body of POST /swaps
type SwapRequest struct {
	USDAmount    float64 `json:"usd_amount"`
	FromCurrency string  `json:"from_currency" binding:"required"`
	ToCurrency   string  `json:"to_currency" binding:"required"`
}

// FeeRequest is the body of PUT /admin/fee
type FeeRequest struct {
	Percentage *float64 `json:"percentage" binding:"required"`
}

// UserRequest names the target of a whitelist or blacklist command
type UserRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ListChange reports the outcome of a whitelist or blacklist command
type ListChange struct {
	UserID string `json:"user_id"`
	Added  bool   `json:"added"`
}

// Settings is the state reported after an owner changes configuration
type Settings struct {
	PlatformFeePercent float64 `json:"platform_fee_percent"`
	Paused             bool    `json:"paused"`
}

// GinHandlers contains HTTP handlers for bot commands
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateSwapHandler handles POST /swaps
func (h *GinHandlers) CreateSwapHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SwapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		record, err := h.service.Swap(c.Request.Context(), middleware.UserID(c), req.USDAmount, req.FromCurrency, req.ToCurrency)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{
			"swap": record,
			"view": NewSwapView(*record),
		})
	}
}

// GetSwapStatusHandler handles GET /swaps/:swap_id
func (h *GinHandlers) GetSwapStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		swapID := c.Param("swap_id")
		if swapID == "" {
			response.BadRequest(c, "Swap ID is required")
			return
		}

		view, err := h.service.Status(middleware.UserID(c), swapID)
		response.Handle(c, view, err)
	}
}

// SupportedTokensHandler handles GET /tokens
func (h *GinHandlers) SupportedTokensHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.service.SupportedTokens())
	}
}

// SupportHandler handles GET /support
func (h *GinHandlers) SupportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.service.Support())
	}
}

// HelpHandler handles GET /help
func (h *GinHandlers) HelpHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, h.service.Help())
	}
}

// SetFeeHandler handles PUT /admin/fee
func (h *GinHandlers) SetFeeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FeeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "percentage is required")
			return
		}

		err := h.service.SetFee(middleware.UserID(c), *req.Percentage)
		response.Handle(c, h.settings(), err)
	}
}

// PauseHandler handles POST /admin/pause
func (h *GinHandlers) PauseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.service.Pause(middleware.UserID(c))
		response.Handle(c, h.settings(), err)
	}
}

// ResumeHandler handles POST /admin/resume
func (h *GinHandlers) ResumeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.service.Resume(middleware.UserID(c))
		response.Handle(c, h.settings(), err)
	}
}

// WhitelistHandler handles POST /admin/whitelist
func (h *GinHandlers) WhitelistHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "user_id is required")
			return
		}

		added, err := h.service.Whitelist(middleware.UserID(c), req.UserID)
		response.Handle(c, ListChange{UserID: req.UserID, Added: added}, err)
	}
}

// BlacklistHandler handles POST /admin/blacklist
func (h *GinHandlers) BlacklistHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "user_id is required")
			return
		}

		added, err := h.service.Blacklist(middleware.UserID(c), req.UserID)
		response.Handle(c, ListChange{UserID: req.UserID, Added: added}, err)
	}
}

// ShowOrderHandler handles GET /admin/swaps/:swap_id
func (h *GinHandlers) ShowOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		details, err := h.service.ShowOrder(c.Request.Context(), middleware.UserID(c), c.Param("swap_id"))
		response.Handle(c, details, err)
	}
}

// UserOrdersHandler handles GET /admin/users/:user_id/swaps
func (h *GinHandlers) UserOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := h.service.UserOrders(middleware.UserID(c), c.Param("user_id"))
		response.Handle(c, views, err)
	}
}

func (h *GinHandlers) settings() Settings {
	return Settings{
		PlatformFeePercent: h.service.cfg.FeePercent(),
		Paused:             h.service.cfg.Paused(),
	}
}

// RegisterRoutes mounts the command endpoints on rg. The group is expected
// to already require gateway authentication.
func (h *GinHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(middleware.ActingUser())

	swaps := rg.Group("/swaps")
	{
		swaps.POST("", h.CreateSwapHandler())
		swaps.GET("/:swap_id", h.GetSwapStatusHandler())
	}

	rg.GET("/tokens", h.SupportedTokensHandler())
	rg.GET("/support", h.SupportHandler())
	rg.GET("/help", h.HelpHandler())

	admin := rg.Group("/admin")
	{
		admin.PUT("/fee", h.SetFeeHandler())
		admin.POST("/pause", h.PauseHandler())
		admin.POST("/resume", h.ResumeHandler())
		admin.POST("/whitelist", h.WhitelistHandler())
		admin.POST("/blacklist", h.BlacklistHandler())
		admin.GET("/swaps/:swap_id", h.ShowOrderHandler())
		admin.GET("/users/:user_id/swaps", h.UserOrdersHandler())
	}
}
