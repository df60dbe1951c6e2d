// Package common holds process-wide helpers shared by the service binaries:
// logger setup and build metadata populated at link time.
package common
