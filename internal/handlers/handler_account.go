package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/finvault/ledgerd/internal/dto"
	"github.com/finvault/ledgerd/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles account creation and the balance view.
type accountHandler struct {
	accountService     portssvc.AccountSvc
	transactionService portssvc.TransactionSvc
}

func newAccountHandler(as portssvc.AccountSvc, ts portssvc.TransactionSvc) *accountHandler {
	return &accountHandler{
		accountService:     as,
		transactionService: ts,
	}
}

func registerAccountRoutes(rg *gin.RouterGroup, as portssvc.AccountSvc, ts portssvc.TransactionSvc) {
	h := newAccountHandler(as, ts)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.createAccount)
		accounts.GET("/:accountNumber", h.getAccount)
	}
}

func (h *accountHandler) createAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format: " + err.Error()})
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), req.HolderName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateAccountResponse{
		Success: true,
		Message: fmt.Sprintf("Account created successfully for %s", account.HolderName),
		Account: dto.ToAccountData(account),
	})
}

func (h *accountHandler) getAccount(c *gin.Context) {
	resp, err := h.transactionService.GetBalance(c.Request.Context(), c.Param("accountNumber"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
