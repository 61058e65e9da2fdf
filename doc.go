// Package polyauth is a pluggable identity authentication engine.
//
// PolyAuth separates authentication into three layers: providers, the
// authenticator lifecycle, and account services.
//
// # Architecture
//
// Provider: one authentication mechanism (an OAuth1 or OAuth2 service, an
// OpenID endpoint, or local username/password). A provider drives its whole
// flow through a single Authenticate call that returns an Outcome: a
// redirect to follow, a completed Profile, or a failure.
//
// Authenticator: a server-side login session with both an absolute lifetime
// and a sliding idle window. Clients hold only its opaque id.
//
// Services: sign-up with email activation, password reset, and the
// single-use verification tokens both are built on.
//
// # Basic Usage
//
// Register providers and hand the registry to your web layer:
//
//	import (
//	    "github.com/polyauth/polyauth"
//	    "github.com/polyauth/polyauth/oauth2"
//	    "github.com/polyauth/polyauth/userpass"
//	    "github.com/polyauth/polyauth/stores/memory"
//	)
//
//	users := memory.NewUserStore()
//	hashers := polyauth.MustHasherSet(hasher.NewBcrypt(0))
//
//	registry := polyauth.NewRegistry(logger)
//	registry.MustRegister(oauth2.NewGitHub(oauth2.Config{
//	    ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
//	    ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
//	}, logger))
//	registry.MustRegister(userpass.New(users, hashers, logger))
//
// Each request in a flow goes through the provider's Authenticate method
// with an Exchange describing the incoming request. The returned Outcome
// says what to do next:
//
//	outcome := provider.Authenticate(ctx, ex)
//	if url, ok := outcome.Redirect(); ok {
//	    // send the user to the external service
//	}
//	if profile, ok := outcome.Profile(); ok {
//	    // authentication finished, create an authenticator
//	}
//
// The session package adapts scs-backed HTTP requests into Exchanges, and
// the web package wires everything into gorilla/mux routes.
package polyauth
