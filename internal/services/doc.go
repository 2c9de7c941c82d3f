// Package services defines the error classification shared by reelcat
// components: sentinel markers, the Wrap helper that tags errors with a
// class, and the recoverable/fatal split used by batch scans.
package services
