// Package common contains common constants and helpers used across services
package common

const (
	// AccountHeader names the account a private request acts for.
	AccountHeader = "X-Account"
	// AdminTokenHeader carries the admin token on admin routes.
	AdminTokenHeader = "X-Admin-Token"

	AccountContextKey = "account"
)
