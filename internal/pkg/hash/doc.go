// Package hash verifies submitted secrets against stored hashes.
//
// Stored one-time-code hashes were written by several generations of the
// issuance service: bcrypt, HMAC-SHA256 in hex, base64 or base64url encoding,
// and raw unhashed strings from early development rows. Each generation is a
// Scheme; callers iterate the scheme list and stop at the first match. All
// comparisons are constant time and a malformed stored value never errors,
// it simply does not match.
package hash
