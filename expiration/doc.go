// Package expiration provides policies for controlling cache entry expiration behavior.
//
// This package defines the ExpirationPolicy interface and several implementations that
// determine when cache entries should be considered expired. These policies can be used
// with greendonut.TaskCache to customize cache expiration behavior.
package expiration
