// Package auth keeps per-identity bearer credentials valid.
//
// [Lifecycle.Authorize] is called before every playback request. An unexpired credential is
// returned from memory without network traffic. An expired one is renewed with the
// refresh-token grant, persisted, and then returned. Renewal for one identity is collapsed
// with [singleflight.Group] so concurrent callers never race the token endpoint.
//
// Stored expiries are pulled forward by a safety margin (30 seconds by default) so a
// credential that is unexpired locally is never rejected remotely for age.
//
// The first credential for an identity arrives through [Lifecycle.Handoff], either from the
// browser login callback or an imported record.
package auth
