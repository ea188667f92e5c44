// Package msauth acquires access tokens for the Microsoft Graph APIs.
//
// The broker memoizes one token for the process lifetime and works
// through a fixed acquisition ladder: cached token, pending redirect
// completion, silent reacquisition from the on-disk token, interactive
// authorization. Every failure collapses to ErrNoToken so callers can
// treat a missing token as a routine skip condition rather than an
// error to propagate.
package msauth
