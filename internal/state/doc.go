// Package state holds the data shared between the background poller and the
// UI.
//
// Store keeps the latest page of workflow runs. The poller calls Update after
// every fetch; a failed fetch records LastError and leaves the previous runs in
// place so the UI keeps showing them. Snapshot returns a copy, so callers may
// hold it while the poller writes. The zero Store is ready to use.
//
// ActiveLog names the one log view on screen together with a sequence number
// that Open bumps. Background fetches carry the LogRef they started with, and
// the UI checks IsActive before applying a result, dropping it when the view
// was closed or reopened meanwhile.
package state
