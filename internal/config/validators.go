package config

import (
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/matrixise/wallet-activity/internal/scheduler"
	"github.com/matrixise/wallet-activity/internal/wallet"
)

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// durationValidator validates duration strings
func durationValidator(fl validator.FieldLevel) bool {
	if fl.Field().String() == "" {
		return true
	}
	_, err := time.ParseDuration(fl.Field().String())
	return err == nil
}

// scheduleValidator accepts clock-aligned durations and 5 or 6 field cron expressions
func scheduleValidator(fl validator.FieldLevel) bool {
	return scheduler.ValidateScheduleInterval(fl.Field().String()) == nil
}

func coinValidator(fl validator.FieldLevel) bool {
	_, err := wallet.ParseCoinType(fl.Field().String())
	return err == nil
}

// currencyValidator accepts three-letter ISO 4217 style codes
func currencyValidator(fl validator.FieldLevel) bool {
	return currencyPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

// accountAddressValidation checks EVM account addresses
func accountAddressValidation(sl validator.StructLevel) {
	account := sl.Current().Interface().(AccountConfig)
	if isEVM(account.Coin) && !common.IsHexAddress(account.Address) {
		sl.ReportError(account.Address, "Address", "address", "eth_addr", "")
	}
}

// tokenAddressValidation checks EVM token contract addresses
func tokenAddressValidation(sl validator.StructLevel) {
	token := sl.Current().Interface().(TokenConfig)
	if isEVM(token.Coin) && !common.IsHexAddress(token.ContractAddress) {
		sl.ReportError(token.ContractAddress, "ContractAddress", "contract_address", "eth_addr", "")
	}
}

func isEVM(coin string) bool {
	c, err := wallet.ParseCoinType(coin)
	return err == nil && c == wallet.CoinETH
}

// NewValidator creates a validator with custom validation rules
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("duration", durationValidator)
	validate.RegisterValidation("schedule", scheduleValidator)
	validate.RegisterValidation("coin", coinValidator)
	validate.RegisterValidation("currency", currencyValidator)
	validate.RegisterStructValidation(accountAddressValidation, AccountConfig{})
	validate.RegisterStructValidation(tokenAddressValidation, TokenConfig{})
	return validate
}
