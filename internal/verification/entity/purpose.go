package entity

import (
	"strings"

	"github.com/dhakamart/verifyd/internal/pkg/strcase"
)

// Purpose is the canonical action a one-time code authorizes.
type Purpose string

const (
	PurposeSignup                   Purpose = "signup"
	PurposeLogin                    Purpose = "login"
	PurposeAddressCreate            Purpose = "address_create"
	PurposeAddressUpdate            Purpose = "address_update"
	PurposeAddressDelete            Purpose = "address_delete"
	PurposeMobileUpdate             Purpose = "mobile_update"
	PurposeEmailUpdate              Purpose = "email_update"
	PurposePasswordChange           Purpose = "password_change"
	PurposeCodConfirm               Purpose = "cod_confirm"
	PurposeOrderConfirm             Purpose = "order_confirm"
	PurposePaymentGatewayAuth       Purpose = "payment_gateway_auth"
	PurposeWalletTransfer           Purpose = "wallet_transfer"
	PurposeRefundDestinationConfirm Purpose = "refund_destination_confirm"
	PurposeRewardRedeemConfirm      Purpose = "reward_redeem_confirm"
	PurposePrivacyRequestConfirm    Purpose = "privacy_request_confirm"
	PurposeRBACLogin                Purpose = "rbac_login"
	PurposeRBACElevate              Purpose = "rbac_elevate"
	PurposeRBACSensitiveAction      Purpose = "rbac_sensitive_action"
)

// String returns the canonical key.
func (p Purpose) String() string {
	return string(p)
}

var purposeSet = map[Purpose]struct{}{
	PurposeSignup: {}, PurposeLogin: {},
	PurposeAddressCreate: {}, PurposeAddressUpdate: {}, PurposeAddressDelete: {},
	PurposeMobileUpdate: {}, PurposeEmailUpdate: {}, PurposePasswordChange: {},
	PurposeCodConfirm: {}, PurposeOrderConfirm: {}, PurposePaymentGatewayAuth: {},
	PurposeWalletTransfer: {}, PurposeRefundDestinationConfirm: {},
	PurposeRewardRedeemConfirm: {}, PurposePrivacyRequestConfirm: {},
	PurposeRBACLogin: {}, PurposeRBACElevate: {}, PurposeRBACSensitiveAction: {},
}

// Historical labels written by earlier storefront releases. Keys are already
// snake_cased; lookups run after strcase normalization.
var purposeAliases = map[string]Purpose{
	"register":              PurposeSignup,
	"registration":          PurposeSignup,
	"sign_up":               PurposeSignup,
	"sign_in":               PurposeLogin,
	"signin":                PurposeLogin,
	"otp_login":             PurposeLogin,
	"add_address":           PurposeAddressCreate,
	"new_address":           PurposeAddressCreate,
	"edit_address":          PurposeAddressUpdate,
	"change_address":        PurposeAddressUpdate,
	"remove_address":        PurposeAddressDelete,
	"delete_address":        PurposeAddressDelete,
	"change_mobile":         PurposeMobileUpdate,
	"phone_update":          PurposeMobileUpdate,
	"update_phone":          PurposeMobileUpdate,
	"verify_mobile":         PurposeMobileUpdate,
	"change_email":          PurposeEmailUpdate,
	"update_email":          PurposeEmailUpdate,
	"verify_email":          PurposeEmailUpdate,
	"change_password":       PurposePasswordChange,
	"password_reset":        PurposePasswordChange,
	"reset_password":        PurposePasswordChange,
	"forgot_password":       PurposePasswordChange,
	"cash_on_delivery":      PurposeCodConfirm,
	"cod":                   PurposeCodConfirm,
	"confirm_order":         PurposeOrderConfirm,
	"gateway_auth":          PurposePaymentGatewayAuth,
	"payment_auth":          PurposePaymentGatewayAuth,
	"transfer_wallet":       PurposeWalletTransfer,
	"refund_confirm":        PurposeRefundDestinationConfirm,
	"redeem_reward":         PurposeRewardRedeemConfirm,
	"privacy_confirm":       PurposePrivacyRequestConfirm,
	"admin_login":           PurposeRBACLogin,
	"admin_elevate":         PurposeRBACElevate,
	"admin_sensitive":       PurposeRBACSensitiveAction,
	"rbac_sensitive":        PurposeRBACSensitiveAction,
	"sensitive_action":      PurposeRBACSensitiveAction,
	"privacy_request":       PurposePrivacyRequestConfirm,
	"reward_redeem":         PurposeRewardRedeemConfirm,
	"refund_destination":    PurposeRefundDestinationConfirm,
	"payment_gateway":       PurposePaymentGatewayAuth,
	"order_confirmation":    PurposeOrderConfirm,
	"cod_confirmation":      PurposeCodConfirm,
	"password_confirmation": PurposePasswordChange,
}

// purposeRule pairs a predicate with the purpose it implies. Rules are
// evaluated top to bottom; the first hit wins.
type purposeRule struct {
	match   func(key string) bool
	purpose Purpose
}

func hasAll(key string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(key, sub) {
			return false
		}
	}
	return true
}

func hasAny(key string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(key, sub) {
			return true
		}
	}
	return false
}

var purposeRules = []purposeRule{
	{func(k string) bool { return strings.Contains(k, "cod") && hasAny(k, "order", "checkout", "confirm", "delivery") }, PurposeCodConfirm},
	{func(k string) bool { return strings.Contains(k, "address") && hasAny(k, "delete", "remove") }, PurposeAddressDelete},
	{func(k string) bool {
		return strings.Contains(k, "address") && hasAny(k, "create", "new", "add_address", "address_add")
	}, PurposeAddressCreate},
	{func(k string) bool { return strings.Contains(k, "address") }, PurposeAddressUpdate},
	{func(k string) bool { return hasAny(k, "mobile", "phone", "msisdn") && hasAny(k, "update", "change", "verify") }, PurposeMobileUpdate},
	{func(k string) bool { return strings.Contains(k, "email") && hasAny(k, "update", "change", "verify") }, PurposeEmailUpdate},
	{func(k string) bool { return hasAny(k, "password", "passcode") }, PurposePasswordChange},
	{func(k string) bool { return hasAll(k, "rbac", "elevate") }, PurposeRBACElevate},
	{func(k string) bool { return hasAll(k, "rbac", "login") }, PurposeRBACLogin},
	{func(k string) bool { return hasAny(k, "rbac", "admin") }, PurposeRBACSensitiveAction},
	{func(k string) bool { return hasAll(k, "wallet", "transfer") }, PurposeWalletTransfer},
	{func(k string) bool { return strings.Contains(k, "refund") }, PurposeRefundDestinationConfirm},
	{func(k string) bool { return hasAny(k, "reward", "redeem") }, PurposeRewardRedeemConfirm},
	{func(k string) bool { return strings.Contains(k, "privacy") }, PurposePrivacyRequestConfirm},
	{func(k string) bool { return hasAny(k, "gateway", "payment") }, PurposePaymentGatewayAuth},
	{func(k string) bool { return hasAll(k, "order", "confirm") }, PurposeOrderConfirm},
	{func(k string) bool { return hasAny(k, "signup", "regist") }, PurposeSignup},
	{func(k string) bool { return hasAny(k, "login", "signin", "sign_in") }, PurposeLogin},
}

// NormalizePurpose canonicalizes a free-form action label. It snake_cases the
// input, tries the enumeration and the alias table, then falls back to the
// heuristic rule list. The second return value is false when nothing applies.
func NormalizePurpose(raw string) (Purpose, bool) {
	key := strcase.ToLowerSnake(raw)
	if key == "" {
		return "", false
	}

	if _, ok := purposeSet[Purpose(key)]; ok {
		return Purpose(key), true
	}

	if p, ok := purposeAliases[key]; ok {
		return p, true
	}

	for _, rule := range purposeRules {
		if rule.match(key) {
			return rule.purpose, true
		}
	}

	return "", false
}
