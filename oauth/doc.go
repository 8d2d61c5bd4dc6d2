// Package oauth runs third-party sign-in and account linking.
//
// CreateChallenge stores a single-use challenge under a random state and
// returns the provider authorize URL. HandleCallback consumes the challenge
// with one GETDEL, exchanges the code (with the PKCE verifier when the
// provider requires one) and routes to login, registration or linking.
package oauth
