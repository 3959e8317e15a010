// Adledger - Google Ads Campaign Analytics and Credential Vault
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/adledger

/*
Package auth verifies the caller's identity for the HTTP API.

Callers present an HS256 JWT in the Authorization header. The subject claim
is the user id that owns connected accounts; it is the only claim adledger
reads. The api package's Authenticate middleware validates the token and
stores the user id with ContextWithUserID.

	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret)
	if err != nil {
	    logging.Fatal().Err(err).Msg("Invalid JWT secret")
	}
	claims, err := jwtManager.ValidateToken(token)

Tokens are stateless and cannot be revoked before they expire. Google OAuth
tokens are unrelated and live in the tokens package.
*/
package auth
