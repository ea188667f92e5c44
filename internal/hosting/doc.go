// Package hosting turns attachment bytes into externally resolvable
// URLs via a file-hosting service.
//
// The Service interface covers the three operations the delivery
// pipeline needs: upload-with-replace under a fixed application folder,
// item metadata fetch (for a pre-authenticated direct download URL and
// the plain web URL), and sharing-link creation with a scope. Two
// backends exist: Microsoft Graph / OneDrive (this package) and Google
// Drive (the drive subpackage).
package hosting
