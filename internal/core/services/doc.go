// Package services implements the driving port interfaces.
// Services contain the backup logic and orchestrate calls to the
// driven ports (adapters): the hosting API, git and the backup filesystem.
//
// Every API call goes through a RateLimitGate, which retries throttled calls
// after the quota resets.
package services
