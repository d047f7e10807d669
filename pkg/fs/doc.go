/*
Package fs wraps filesystem operations to provide a simple and resilient API.

This enable low development and maintainenance effort, while keeping the
benchmark state (challenge bundles, live deployments, run reports) browsable
with standard tools.

The storage is based on a filesystem, future works could move this to an
object store such a S3-compliant solution.
*/
package fs
