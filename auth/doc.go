// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth implements email/password authentication over the store.

Credentials are bcrypt hashes; plaintext passwords never touch the store.
Authenticate collapses "no such user" and "wrong password" into a single
ErrInvalidCredentials so account existence is not probeable.

This package owns the external-collaborator boundary the rest of the system
expects: handlers call Authenticate and Register, nothing else inspects
password material.
*/
package auth
