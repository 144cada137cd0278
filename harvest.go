// Package harvest provides a concurrent, rate-limited extraction engine for
// session-authenticated HTTP APIs. It fetches metadata and content records,
// survives transient failures and session expiry, and persists results in
// batches as they complete.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, http/).
package harvest
