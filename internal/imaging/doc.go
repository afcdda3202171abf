// Package imaging provides the grayscale image buffer and the image I/O used
// by the thresholding operations.
//
// Images are decoded from disk, reduced to a single 8-bit luma plane and held
// in a Buffer: a row-major array of samples with explicit width and height.
// Coordinates are 0-based with (0,0) at the top-left corner, X increasing
// rightward and Y increasing downward.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Buffers returned by the
// cache are shared and must be treated as read-only; operations in this
// module always allocate new buffers for their results, so the same source
// buffer can be processed by several goroutines at once.
//
// # Supported Formats
//
// Decoding: PNG, JPEG, GIF, BMP, TIFF and WebP. Encoding: PNG, JPEG, GIF,
// BMP and TIFF, chosen by file extension. Binary results should be written
// as PNG (or another lossless format) to keep every sample at 0 or 255.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Empty buffers or sample slices that do not match the dimensions (ErrEmptyImage)
//   - Buffers that must share dimensions but do not (ErrDimensionMismatch)
//   - Regions outside image bounds
//   - File I/O, decoding and encoding failures
package imaging
