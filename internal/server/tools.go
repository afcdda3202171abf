package server

import "github.com/ironsheep/image-threshold/internal/threshold"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func regionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Optional region to binarize instead of the whole image; (x1,y1) inclusive, (x2,y2) exclusive",
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "integer"},
			"y1": map[string]interface{}{"type": "integer"},
			"x2": map[string]interface{}{"type": "integer"},
			"y2": map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func includeImageProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "boolean",
		"description": "Return binarized images as base64 PNG (default: true)",
		"default":     true,
	}
}

func globalProperties(props map[string]interface{}) map[string]interface{} {
	props["epsilon"] = map[string]interface{}{
		"type":        "number",
		"description": "Convergence tolerance in intensity units (default from configuration, usually 1.0)",
		"minimum":     0,
	}
	props["max_iterations"] = map[string]interface{}{
		"type":        "integer",
		"description": "Maximum refinement steps before giving up (default: 1000)",
		"minimum":     0,
	}
	return props
}

func localProperties(props map[string]interface{}) map[string]interface{} {
	props["window_width"] = map[string]interface{}{
		"type":        "integer",
		"description": "Neighborhood width in pixels; even values are raised to the next odd value (default: 51)",
		"minimum":     1,
		"maximum":     threshold.MaxWindowSide,
	}
	props["window_height"] = map[string]interface{}{
		"type":        "integer",
		"description": "Neighborhood height in pixels; even values are raised to the next odd value (default: 51)",
		"minimum":     1,
		"maximum":     threshold.MaxWindowSide,
	}
	return props
}

func grayProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "How color pixels are reduced to gray: BT.601 luma or CIE L* lightness (default from configuration, usually luma)",
		"enum":        []string{"luma", "lightness"},
	}
}

func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"path":   pathProperty(),
		"region": regionProperty(),
		"gray":   grayProperty(),
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file, convert it to 8-bit grayscale and return its dimensions and format. The grayscale buffer is cached for later thresholding calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Thresholding
		{
			Name:        "image_threshold_global",
			Description: "Binarize an image with one global threshold found by iterative mean-splitting from the median intensity. Pixels strictly above the threshold become 255, all others 0. Returns the threshold, the number of iterations and the binary image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": func() map[string]interface{} {
					p := globalProperties(baseProperties())
					p["include_image"] = includeImageProperty()
					return p
				}(),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_threshold_local",
			Description: "Binarize an image by comparing every pixel with the mean of a window centred on it. Edges are replicated past the border. Suited to scans with uneven illumination.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": func() map[string]interface{} {
					p := localProperties(baseProperties())
					p["include_image"] = includeImageProperty()
					return p
				}(),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_binarize",
			Description: "Run both the global and the local threshold on an image and report how closely the two binary images agree.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": func() map[string]interface{} {
					p := localProperties(globalProperties(baseProperties()))
					p["include_image"] = includeImageProperty()
					return p
				}(),
				"required": []string{"path"},
			},
		},

		// OCR
		{
			Name:        "image_ocr_binarized",
			Description: "Binarize an image both ways and run Tesseract OCR on each result. Reports the recognized text, the mean word confidence of each method and which one reads better. Requires Tesseract.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": func() map[string]interface{} {
					p := localProperties(globalProperties(baseProperties()))
					p["language"] = map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code (default: eng)",
						"default":     "eng",
					}
					return p
				}(),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
