// Package repositories implements the credential store and device cache on SQLite.
//
// [CredentialRepository] owns the persisted copy of every credential and the client secret
// pair. No other component reads the credential tables. [DeviceRepository] remembers devices
// the playback service has reported so inactive ones can still be offered as targets.
//
// Single-process ownership is assumed; writes are whole-record upserts.
package repositories
