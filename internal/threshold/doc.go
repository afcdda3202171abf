// Package threshold converts grayscale buffers into binary (0/255) buffers.
//
// Two independent methods are provided:
//
//   - Global computes one threshold for the whole image by iterative
//     mean-splitting, starting from the median intensity.
//   - Local compares every pixel with the mean of an odd-sized window
//     centred on it, replicating edge samples past the image border.
//
// Both are pure functions of their inputs. They never modify the source
// buffer and keep no state between calls, so the same buffer may be passed
// to both concurrently.
//
// # Errors
//
//   - imaging.ErrEmptyImage: nil, empty or malformed input buffer
//   - ErrInvalidEpsilon: NaN convergence tolerance
//   - ErrNotConverged: the global loop hit its iteration cap
//   - ErrInvalidWindow: a window side smaller than 1
package threshold
