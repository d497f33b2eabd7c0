// Package server provides HTTP routing, middleware, and OAuth handling for the CLI sign-in flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [RequestLogger] is the one middleware shipped here.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// asks an [Identify] func which account signed in, and sends the resulting credential through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// When the user runs "auth login", a [CallbackServer] starts on the configured host and port, the browser is sent
// to the authorization page, and the server shuts down after the first callback.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
