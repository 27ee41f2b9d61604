// Package sanitizer normalizes user input before validation and storage.
//
// Every function is idempotent and never fails; unusable input becomes the
// empty string.
package sanitizer
