package ir

// Version constants for the bitstream and the driver.
const (
	// FormatVersion is the bitstream envelope version written by Encode.
	FormatVersion uint32 = 1

	// ToolVersion is the tmlink driver version.
	ToolVersion = "0.1.0"

	// DefaultTargetLayout is used when neither the module nor the
	// configuration names a layout.
	DefaultTargetLayout = "e-p:64:64:64-i64:64:64-n8:16:32:64"
)
