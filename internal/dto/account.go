package dto

import (
	"time"

	"github.com/finvault/ledgerd/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the data needed to open a new account.
type CreateAccountRequest struct {
	HolderName string `json:"holderName" binding:"required"`
}

// AccountData mirrors domain.Account for API responses.
type AccountData struct {
	AccountNumber string          `json:"accountNumber"`
	HolderName    string          `json:"holderName"`
	Balance       decimal.Decimal `json:"balance"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CreateAccountResponse is returned after a successful account creation.
type CreateAccountResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Account AccountData `json:"account"`
}

// BalanceResponse is the read-only balance projection for an account.
type BalanceResponse struct {
	Success       bool            `json:"success"`
	AccountNumber string          `json:"accountNumber"`
	HolderName    string          `json:"holderName"`
	Balance       decimal.Decimal `json:"balance"`
}

// ToAccountData converts a domain.Account to its API representation.
// The surrogate account ID stays internal; clients only see the number.
func ToAccountData(acc *domain.Account) AccountData {
	return AccountData{
		AccountNumber: acc.AccountNumber,
		HolderName:    acc.HolderName,
		Balance:       acc.Balance,
		IsActive:      acc.IsActive,
		CreatedAt:     acc.CreatedAt,
	}
}
