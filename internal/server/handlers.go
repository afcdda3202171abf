package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/ironsheep/image-threshold/internal/imaging"
	"github.com/ironsheep/image-threshold/internal/ocr"
	"github.com/ironsheep/image-threshold/internal/threshold"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_binarize").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// paramError marks tool arguments that are malformed or out of range.
type paramError struct {
	err error
}

func (e *paramError) Error() string { return e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

func invalidParams(format string, args ...interface{}) error {
	return &paramError{err: fmt.Errorf(format, args...)}
}

// isParamError reports whether err should be answered with -32602.
func isParamError(err error) bool {
	var pe *paramError
	return errors.As(err, &pe) ||
		errors.Is(err, threshold.ErrInvalidWindow) ||
		errors.Is(err, threshold.ErrInvalidEpsilon)
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Invalid arguments return code -32602, any other tool failure -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		if s.cfg.Debug() {
			log.Printf("tool %s failed: %v", params.Name, err)
		}
		if isParamError(err) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Fills omitted parameters from the server configuration
//  3. Loads the image from cache and crops it to the optional region
//  4. Calls the appropriate threshold/ocr function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Thresholding
	case "image_threshold_global":
		return s.handleThresholdGlobal(args)
	case "image_threshold_local":
		return s.handleThresholdLocal(args)
	case "image_binarize":
		return s.handleBinarize(args)

	// OCR
	case "image_ocr_binarized":
		return s.handleOCRBinarized(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, treating absent arguments as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &paramError{err: fmt.Errorf("invalid arguments: %w", err)}
	}
	return nil
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (a *imageLoadArgs) validate() error {
	if a.Path == "" {
		return invalidParams("path is required")
	}
	return nil
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeAndValidate(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeAndValidate(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Thresholding Handlers ===

// thresholdArgs are shared by every thresholding tool. Pointer fields are
// optional and fall back to the server configuration.
type thresholdArgs struct {
	Path   string          `json:"path"`
	Region *imaging.Region `json:"region"`
	Gray   string          `json:"gray"`

	Epsilon       *float64 `json:"epsilon"`
	MaxIterations *int     `json:"max_iterations"`

	WindowWidth  *int `json:"window_width"`
	WindowHeight *int `json:"window_height"`

	// IncludeImage controls whether binarized images are returned as
	// base64 PNG. Defaults to true.
	IncludeImage *bool `json:"include_image"`
}

func (a *thresholdArgs) validate() error {
	if a.Path == "" {
		return invalidParams("path is required")
	}
	if _, err := imaging.ParseConversion(a.Gray); err != nil {
		return &paramError{err: err}
	}
	if a.Epsilon != nil && (*a.Epsilon < 0 || math.IsNaN(*a.Epsilon) || math.IsInf(*a.Epsilon, 0)) {
		return invalidParams("epsilon must be a finite value >= 0, got %v", *a.Epsilon)
	}
	if a.MaxIterations != nil && *a.MaxIterations < 0 {
		return invalidParams("max_iterations must be >= 0, got %d", *a.MaxIterations)
	}
	for name, side := range map[string]*int{"window_width": a.WindowWidth, "window_height": a.WindowHeight} {
		if side != nil && (*side < 1 || *side > threshold.MaxWindowSide) {
			return invalidParams("%s must be between 1 and %d, got %d", name, threshold.MaxWindowSide, *side)
		}
	}
	return nil
}

func (a *thresholdArgs) includeImage() bool {
	return a.IncludeImage == nil || *a.IncludeImage
}

func (s *Server) globalOptions(a *thresholdArgs) threshold.GlobalOptions {
	opts := s.cfg.GlobalOptions()
	if a.Epsilon != nil {
		opts.Epsilon = *a.Epsilon
	}
	if a.MaxIterations != nil {
		opts.MaxIterations = *a.MaxIterations
	}
	return opts
}

func (s *Server) localOptions(a *thresholdArgs) threshold.LocalOptions {
	opts := s.cfg.LocalOptions()
	if a.WindowWidth != nil {
		opts.WindowWidth = *a.WindowWidth
	}
	if a.WindowHeight != nil {
		opts.WindowHeight = *a.WindowHeight
	}
	return opts
}

// validator is implemented by every tool argument struct.
type validator interface {
	validate() error
}

// decodeAndValidate unmarshals tool arguments into a and checks them.
func decodeAndValidate(args json.RawMessage, a validator) error {
	if err := decodeArgs(args, a); err != nil {
		return err
	}
	return a.validate()
}

// source returns the cached grayscale buffer cropped to the requested region.
func (s *Server) source(a *thresholdArgs) (*imaging.Buffer, error) {
	conv := s.cfg.Conversion()
	if a.Gray != "" {
		conv, _ = imaging.ParseConversion(a.Gray)
	}
	buf, err := s.cache.LoadAs(a.Path, conv)
	if err != nil {
		return nil, err
	}
	if a.Region == nil {
		return buf, nil
	}
	cropped, err := imaging.Crop(buf, *a.Region)
	if err != nil {
		return nil, &paramError{err: err}
	}
	return cropped, nil
}

// GlobalToolResult is returned by image_threshold_global.
type GlobalToolResult struct {
	*threshold.GlobalResult

	Width  int                   `json:"width"`
	Height int                   `json:"height"`
	Region *imaging.Region       `json:"region,omitempty"`
	Image  *imaging.EncodedImage `json:"image,omitempty"`
}

// LocalToolResult is returned by image_threshold_local.
type LocalToolResult struct {
	*threshold.LocalResult

	Width  int                   `json:"width"`
	Height int                   `json:"height"`
	Region *imaging.Region       `json:"region,omitempty"`
	Image  *imaging.EncodedImage `json:"image,omitempty"`
}

// BinarizeToolResult is returned by image_binarize.
type BinarizeToolResult struct {
	Global    *GlobalToolResult      `json:"global"`
	Local     *LocalToolResult       `json:"local"`
	Agreement *imaging.CompareResult `json:"agreement"`

	GlobalComponents *imaging.ComponentStats `json:"global_components"`
	LocalComponents  *imaging.ComponentStats `json:"local_components"`
}

func (s *Server) globalToolResult(a *thresholdArgs, res *threshold.GlobalResult) (*GlobalToolResult, error) {
	out := &GlobalToolResult{
		GlobalResult: res,
		Width:        res.Image.Width,
		Height:       res.Image.Height,
		Region:       a.Region,
	}
	if a.includeImage() {
		enc, err := imaging.EncodePNGBase64(res.Image)
		if err != nil {
			return nil, err
		}
		out.Image = enc
	}
	return out, nil
}

func (s *Server) localToolResult(a *thresholdArgs, res *threshold.LocalResult) (*LocalToolResult, error) {
	out := &LocalToolResult{
		LocalResult: res,
		Width:       res.Image.Width,
		Height:      res.Image.Height,
		Region:      a.Region,
	}
	if a.includeImage() {
		enc, err := imaging.EncodePNGBase64(res.Image)
		if err != nil {
			return nil, err
		}
		out.Image = enc
	}
	return out, nil
}

func (s *Server) handleThresholdGlobal(args json.RawMessage) (interface{}, error) {
	a := &thresholdArgs{}
	if err := decodeAndValidate(args, a); err != nil {
		return nil, err
	}
	buf, err := s.source(a)
	if err != nil {
		return nil, err
	}
	res, err := threshold.Global(buf, s.globalOptions(a))
	if err != nil {
		return nil, err
	}
	return s.globalToolResult(a, res)
}

func (s *Server) handleThresholdLocal(args json.RawMessage) (interface{}, error) {
	a := &thresholdArgs{}
	if err := decodeAndValidate(args, a); err != nil {
		return nil, err
	}
	buf, err := s.source(a)
	if err != nil {
		return nil, err
	}
	res, err := threshold.Local(buf, s.localOptions(a))
	if err != nil {
		return nil, err
	}
	return s.localToolResult(a, res)
}

func (s *Server) handleBinarize(args json.RawMessage) (interface{}, error) {
	a := &thresholdArgs{}
	if err := decodeAndValidate(args, a); err != nil {
		return nil, err
	}
	buf, err := s.source(a)
	if err != nil {
		return nil, err
	}
	cmp, err := threshold.Both(buf, s.globalOptions(a), s.localOptions(a))
	if err != nil {
		return nil, err
	}

	g, err := s.globalToolResult(a, cmp.Global)
	if err != nil {
		return nil, err
	}
	l, err := s.localToolResult(a, cmp.Local)
	if err != nil {
		return nil, err
	}
	return &BinarizeToolResult{
		Global:           g,
		Local:            l,
		Agreement:        cmp.Agreement,
		GlobalComponents: cmp.GlobalComponents,
		LocalComponents:  cmp.LocalComponents,
	}, nil
}

// === OCR Handlers ===

type ocrBinarizedArgs struct {
	thresholdArgs
	Language string `json:"language"`
}

// OCRToolResult is returned by image_ocr_binarized.
type OCRToolResult struct {
	Threshold float64          `json:"global_threshold"`
	Window    threshold.Window `json:"local_window"`
	*ocr.Comparison
}

func (s *Server) handleOCRBinarized(args json.RawMessage) (interface{}, error) {
	a := &ocrBinarizedArgs{}
	if err := decodeAndValidate(args, a); err != nil {
		return nil, err
	}
	if a.Language == "" {
		a.Language = s.cfg.OCR.Language
	}
	buf, err := s.source(&a.thresholdArgs)
	if err != nil {
		return nil, err
	}

	cmp, err := threshold.Both(buf, s.globalOptions(&a.thresholdArgs), s.localOptions(&a.thresholdArgs))
	if err != nil {
		return nil, err
	}
	scores, err := ocr.Compare(cmp.Global.Image, cmp.Local.Image, a.Language)
	if err != nil {
		return nil, err
	}
	return &OCRToolResult{
		Threshold:  cmp.Global.Threshold,
		Window:     cmp.Local.Window,
		Comparison: scores,
	}, nil
}
