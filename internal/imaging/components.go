package imaging

// ComponentStats summarizes the connected Foreground regions of a buffer.
type ComponentStats struct {
	// Count is the number of 8-connected Foreground regions.
	Count int `json:"count"`

	// Largest is the pixel count of the biggest region.
	Largest int `json:"largest"`

	// Noise is the number of regions smaller than the minimum size. They
	// are not included in Count.
	Noise int `json:"noise"`
}

// Components counts the 8-connected Foreground regions of buf. Regions with
// fewer than minSize pixels are reported as Noise.
func Components(buf *Buffer, minSize int) (*ComponentStats, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	stats := &ComponentStats{}
	visited := make([]bool, buf.Len())
	var stack []int

	for start, v := range buf.Pix {
		if v != Foreground || visited[start] {
			continue
		}

		// Iterative fill; large regions would overflow a recursive one.
		size := 0
		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++

			x, y := i%buf.Width, i/buf.Width
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= buf.Height {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if (dx == 0 && dy == 0) || nx < 0 || nx >= buf.Width {
						continue
					}
					n := ny*buf.Width + nx
					if !visited[n] && buf.Pix[n] == Foreground {
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}
		}

		if size < minSize {
			stats.Noise++
			continue
		}
		stats.Count++
		if size > stats.Largest {
			stats.Largest = size
		}
	}
	return stats, nil
}
