// Package registry talks to the device-management registry (LMS).
//
// The Registry interface is what the reconciler depends on. Client is the
// HTTP implementation: it obtains a bearer token once with a password grant,
// opens a site session, and manages devices inside one registry group.
//
// Create never reports "already exists" as an error. It returns a
// CreateResult tagged Created, Conflict or Failed so callers branch on
// structure rather than on error text.
package registry
