// Package sessiontoken mints the short-lived proof returned after a
// successful one-time-code verification.
//
// The token is a compact JWS (HMAC-SHA256) carrying the user id, the canonical
// identifier, the effective purpose and a fresh random session id. It is never
// stored server-side; downstream sensitive-action endpoints validate it solely
// by signature and expiry. Transport is the otp_session cookie described by
// Issuer.Cookie.
package sessiontoken
