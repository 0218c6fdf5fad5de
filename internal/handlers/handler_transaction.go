package handlers

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	portssvc "github.com/finvault/ledgerd/internal/core/ports/services"
	"github.com/finvault/ledgerd/internal/dto"
	"github.com/finvault/ledgerd/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const idempotencyKeyHeader = "Idempotency-Key"

// transactionHandler handles deposits, withdrawals, history and CSV export.
type transactionHandler struct {
	transactionService portssvc.TransactionSvc
}

func newTransactionHandler(ts portssvc.TransactionSvc) *transactionHandler {
	return &transactionHandler{transactionService: ts}
}

func registerTransactionRoutes(rg *gin.RouterGroup, ts portssvc.TransactionSvc) {
	h := newTransactionHandler(ts)

	accounts := rg.Group("/accounts/:accountNumber")
	{
		accounts.POST("/deposit", h.deposit)
		accounts.POST("/withdraw", h.withdraw)
		accounts.GET("/transactions", h.getHistory)
		accounts.GET("/transactions/export", h.exportHistory)
	}
}

type mutationFunc func(c *gin.Context, accountNumber string, amount decimal.Decimal, idempotencyKey string) (*dto.TransactionResponse, error)

func (h *transactionHandler) deposit(c *gin.Context) {
	h.mutate(c, func(c *gin.Context, number string, amount decimal.Decimal, key string) (*dto.TransactionResponse, error) {
		return h.transactionService.Deposit(c.Request.Context(), number, amount, key)
	})
}

func (h *transactionHandler) withdraw(c *gin.Context) {
	h.mutate(c, func(c *gin.Context, number string, amount decimal.Decimal, key string) (*dto.TransactionResponse, error) {
		return h.transactionService.Withdraw(c.Request.Context(), number, amount, key)
	})
}

func (h *transactionHandler) mutate(c *gin.Context, apply mutationFunc) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountNumber := c.Param("accountNumber")
	idempotencyKey := c.GetHeader(idempotencyKeyHeader)

	var req dto.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for transaction", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format: " + err.Error()})
		return
	}

	resp, err := apply(c, accountNumber, req.Amount, idempotencyKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *transactionHandler) getHistory(c *gin.Context) {
	accountNumber := c.Param("accountNumber")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid limit parameter"})
		return
	}

	resp, err := h.transactionService.GetHistory(c.Request.Context(), accountNumber, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// exportHistory streams the full transaction history as a CSV attachment.
func (h *transactionHandler) exportHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountNumber := c.Param("accountNumber")

	txns, err := h.transactionService.ListAllTransactions(c.Request.Context(), accountNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=transactions_%s.csv", accountNumber))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"ID", "Type", "Amount", "Balance After", "Description", "Date"})
	for i := range txns {
		txn := &txns[i]
		_ = w.Write([]string{
			strconv.FormatInt(txn.TransactionID, 10),
			string(txn.Type),
			"$" + txn.Amount.StringFixed(2),
			"$" + txn.BalanceAfter.StringFixed(2),
			txn.Description,
			txn.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logger.Error("CSV export write failed", slog.String("error", err.Error()))
	}
}
