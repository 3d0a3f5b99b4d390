// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the authentication service over HTTP.
//
// Routes:
//
//	POST /api/auth/register  create an account, returns {"token", "user"} (201)
//	POST /api/auth/login     exchange credentials for a token (200)
//	GET  /api/auth/me        the user named by the bearer token (200)
//
// Every failure is written through apperr, so the body is always
// {"error": "<message>"} with the status fixed by the error kind.
package httpapi
