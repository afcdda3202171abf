package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ImageCache provides thread-safe caching of decoded grayscale buffers to
// avoid redundant disk reads and color conversion.
//
// Buffers are keyed by the exact path string and the conversion used.
// Callers must treat returned buffers as read-only; every thresholding
// operation in this module allocates its own output.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	buf, err := cache.Load("/path/to/scan.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/path/to/scan.png") // Optional: free memory
type ImageCache struct {
	mu      sync.RWMutex
	buffers map[cacheKey]*Buffer
}

type cacheKey struct {
	path string
	conv Conversion
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		buffers: make(map[cacheKey]*Buffer),
	}
}

// Load retrieves a luma buffer from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. EXIF orientation
// is applied before conversion. Color inputs are reduced to a single luma
// plane using ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B); alpha is
// ignored.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a decodable image
//   - Returns ErrEmptyImage if the decoded image has no pixels
func (c *ImageCache) Load(path string) (*Buffer, error) {
	return c.LoadAs(path, Luma)
}

// LoadAs is Load with an explicit gray conversion.
func (c *ImageCache) LoadAs(path string, conv Conversion) (*Buffer, error) {
	if conv == "" {
		conv = Luma
	}
	key := cacheKey{path: path, conv: conv}

	c.mu.RLock()
	if buf, ok := c.buffers[key]; ok {
		c.mu.RUnlock()
		return buf, nil
	}
	c.mu.RUnlock()

	buf, err := decodeFile(path, conv)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.buffers[key] = buf
	c.mu.Unlock()

	return buf, nil
}

// Clear removes all buffers from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.buffers = make(map[cacheKey]*Buffer)
	c.mu.Unlock()
}

// Evict removes every cached conversion of path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	for key := range c.buffers {
		if key.path == path {
			delete(c.buffers, key)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached buffers.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.buffers)
}

// LoadFileAs decodes an image file with the given conversion without caching.
func LoadFileAs(path string, conv Conversion) (*Buffer, error) {
	return decodeFile(path, conv)
}

func decodeFile(path string, conv Conversion) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	buf, err := ToGray(img, conv)
	if err != nil {
		return nil, err
	}
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return buf, nil
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Pixels is Width*Height.
	Pixels int `json:"pixels"`

	// Format is the format implied by the file extension: "png", "jpeg",
	// "gif", "bmp", "tiff", "webp" or "unknown".
	Format string `json:"format"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image into the cache and returns its metadata.
//
// The format is determined by file extension, not file contents.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	buf, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &ImageInfo{
		Width:         buf.Width,
		Height:        buf.Height,
		Pixels:        buf.Len(),
		Format:        formatName(path),
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image, loading it into the
// cache if needed.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	buf, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return &DimensionsResult{
		Width:  buf.Width,
		Height: buf.Height,
	}, nil
}

func formatName(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		return "webp"
	}
	f, err := imaging.FormatFromFilename(path)
	if err != nil {
		return "unknown"
	}
	return strings.ToLower(f.String())
}
