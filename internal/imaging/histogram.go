package imaging

import (
	"github.com/anthonynsimon/bild/histogram"
)

// Histogram is a 256-bin intensity histogram of a buffer.
type Histogram struct {
	histogram.Histogram
	total int
}

// NewHistogram counts the samples of buf.
func NewHistogram(buf *Buffer) *Histogram {
	h := &Histogram{
		Histogram: histogram.Histogram{Bins: make([]int, 256)},
		total:     buf.Len(),
	}
	for _, v := range buf.Pix {
		h.Bins[v]++
	}
	return h
}

// Total returns the number of samples counted.
func (h *Histogram) Total() int {
	return h.total
}

// Median returns the median intensity. For an even number of samples it is
// the mean of the two middle samples, so the result may end in .5.
func (h *Histogram) Median() float64 {
	if h.total == 0 {
		return 0
	}
	cum := h.Cumulative()
	lo := nthSample(cum.Bins, (h.total-1)/2)
	hi := nthSample(cum.Bins, h.total/2)
	return (float64(lo) + float64(hi)) / 2
}

// nthSample returns the value of the n-th (0-based) sample in sorted order.
func nthSample(cum []int, n int) int {
	for v, c := range cum {
		if c > n {
			return v
		}
	}
	return len(cum) - 1
}

// SplitMeans partitions the samples into values <= t and values > t and
// returns the mean of each class. An empty class has mean 0.
//
// Class sums are accumulated as integers, so the means equal the ones
// obtained by summing the pixels directly in float64.
func (h *Histogram) SplitMeans(t float64) (low, high float64) {
	var lowSum, lowN, highSum, highN int
	for v, n := range h.Bins {
		if n == 0 {
			continue
		}
		if float64(v) <= t {
			lowSum += v * n
			lowN += n
		} else {
			highSum += v * n
			highN += n
		}
	}
	if lowN > 0 {
		low = float64(lowSum) / float64(lowN)
	}
	if highN > 0 {
		high = float64(highSum) / float64(highN)
	}
	return low, high
}
