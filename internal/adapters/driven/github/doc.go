// Package github implements the hosting port for the GitHub REST API.
//
// # Architecture
//
// The package follows the driven port pattern defined in [driven.HostingAPI].
// It comprises the following components:
//
//   - Factory: builds a Client for a set of credentials
//   - Client: typed listings and raw JSON access through go-github
//   - RateLimiter: proactive request throttling and quota header tracking
//
// # Authentication
//
// A token (given as the password or as the login itself) is sent as a bearer
// token. Any other password is sent with HTTP basic authentication. Without
// credentials the client is anonymous and limited to 60 requests per hour.
//
// # Raw documents
//
// Issues, pull requests, releases and account collections are fetched as raw
// JSON and decoded with json.Decoder.UseNumber, so every field and number is
// preserved when the document is written back.
//
// # Rate Limiting
//
// Responses exceeding the quota are reported as errors wrapping
// domain.ErrRateLimited; the core decides when to retry. The client itself
// only spaces requests out with a token bucket.
package github
