// Package server implements the MCP (Model Context Protocol) server for the
// thresholding tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image, convert to grayscale and get metadata
//   - image_dimensions: Get width and height
//
// Thresholding:
//   - image_threshold_global: Iterative mean-split global threshold
//   - image_threshold_local: Window-mean local threshold
//   - image_binarize: Both methods plus their pixel agreement
//
// OCR:
//   - image_ocr_binarized: Tesseract confidence for both binarizations
//
// Every thresholding tool accepts an optional region to binarize instead of
// the whole image. Parameters that are omitted come from the configuration
// the server was created with. Binary images are returned as base64 PNG.
//
// # Image Caching
//
// Images are decoded to 8-bit grayscale once and cached by path for the
// lifetime of the server process. Thresholding never modifies the cached
// buffer.
//
// # Error Handling
//
// Errors are returned as JSON-RPC error responses with:
//   - code: -32602 for malformed or out-of-range arguments, -32000 for any
//     other tool failure, -32601 for unknown methods
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cfg)
//	if err := srv.Serve(os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
