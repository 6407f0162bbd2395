// Package auth provides the stateless credential helpers used by the UI:
// bcrypt password hashing and verification, and HMAC-signed session tokens.
package auth
