// Package services defines the [Player] interface for remote playback control and implements
// it for the Spotify Web API.
//
// # Authorization
//
// [SpotifyPlayer] does not hold credentials. Its HTTP client wraps an [oauth2.Transport]
// whose token source is the credential lifecycle, so every request is authorized with a
// credential that was valid when the request was sent. Credential failures
// ([shared.ErrRenewalRejected], [shared.ErrNotFound], [shared.ErrStorage]) pass through
// unchanged so the session can treat them as fatal.
//
// # Responses
//
// A 204 response to a query is reported as [shared.ErrNoContent], distinct from a failure.
// Any other non-2xx response becomes a [*GatewayError] that matches [shared.ErrGateway].
//
// # Retries and Rate Limiting
//
// Requests wait on a client-side [rate.Limiter]. Transport errors, 429 and 5xx responses are
// retried with exponential backoff; Retry-After overrides the delay.
//
// # Devices
//
// [MergeDevices] combines live devices with the local device cache so inactive devices can
// still be offered as playback targets.
package services
