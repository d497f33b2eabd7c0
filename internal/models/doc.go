// Package models defines the domain records shared by the credential store, the playback gateway, and the live session.
//
// The package contains two categories of types:
//
// 1. Persistent records: owned by the credential store and written whole
//   - [Credential] : access/refresh secret pair and expiry for one identity
//   - [ClientSecretPair] : the process-wide OAuth client id and secret
//   - [Device] : a previously seen playback device, cached as a selection hint
//
// 2. Render state: owned by the session loop and never persisted
//   - [TrackRef] : the fields of a track the view shows
//   - [PlaybackSnapshot] : "what is playing now and next"
//   - [SessionState] : refresh bookkeeping for the loop
package models
