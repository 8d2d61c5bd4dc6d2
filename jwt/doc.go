// Package jwt issues and verifies the HS512 access and refresh tokens that
// carry a session id. A token is only as good as its session: callers must
// still authenticate the sid against the session store.
package jwt
