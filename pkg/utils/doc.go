// Package utils provides panic recovery helpers shared by the background
// task dispatcher and other long-lived goroutines.
package utils
