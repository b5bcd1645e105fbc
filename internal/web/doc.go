// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the account and login-token workflows over HTTP.
//
// Routes:
//
//	POST /                 create an account and its primary character
//	GET  /                 token for the account's primary character
//	POST /characters       create another character (JSON body)
//	GET  /characters       list the account's characters
//	GET  /login-character  token for a named character the account owns
//
// Unknown paths answer 404 and verbs other than GET and POST answer 501.
package web
