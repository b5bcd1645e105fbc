// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements the account workflows of the gateway.
//
// # Domain Types
//
// Accounts should be created with NewAccount, which validates the id and the
// stored hash. Repository implementations receive pre-validated accounts.
//
// # Services
//
// Service coordinates the credential store, the character store, the password
// hasher and the token issuer:
//   - CreateAccount - account plus primary character, in one transaction
//   - CreateCharacter - additional character for an authenticated account
//   - Authenticate - existence check then hash verification
//   - IssueAccountToken / IssueCharacterToken - login tokens
//   - ListCharacters - characters owned by an authenticated account
//
// Errors carry oops codes. AUTH_ACCOUNT_NOT_FOUND and AUTH_INVALID_PASSWORD
// are distinct internally and must be reported identically to clients.
package auth
