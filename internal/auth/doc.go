// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides password credentials and session tokens.
//
// # Credentials
//
// Passwords are hashed with argon2id by [Argon2idHasher]. Request handlers
// never call it directly: [HashPool] runs it on a fixed number of worker
// goroutines so slow key derivation cannot starve the HTTP server. A
// malformed stored hash is reported as apperr.KindHashing, never as a
// mismatch.
//
// # Tokens
//
// [TokenService] issues HS256 tokens carrying [Claims] for [Lifetime] and
// validates them in a fixed order: structure, signature, claim shape,
// expiry. Every failure is an apperr.KindTokenInvalid error wrapping one of
// [ErrTokenMalformed], [ErrTokenSignature] or [ErrTokenExpired].
//
// # Services
//
// [Service] ties the two together with a [UserRepository] for register,
// login and current-user lookups.
package auth
