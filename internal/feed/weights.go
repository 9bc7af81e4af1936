package feed

import "math/rand/v2"

// WeightGenerator generates per-key selection weights.
type WeightGenerator interface {
	// GenerateWeights returns one weight per key.
	GenerateWeights(keyCount int) []int64
}

// UniformWeightGenerator gives every key the same weight.
type UniformWeightGenerator struct{}

// GenerateWeights implements WeightGenerator.
func (UniformWeightGenerator) GenerateWeights(keyCount int) []int64 {
	weights := make([]int64, keyCount)
	for i := range weights {
		weights[i] = 1
	}

	return weights
}

// HotSetWeightGenerator makes a small share of keys much more active than the
// rest, which is what exercises superseded-update compaction.
type HotSetWeightGenerator struct {
	hotPercent float64
	hotWeight  int64
	coldWeight int64
}

// NewHotSetWeightGenerator creates a hot-set generator.
//
// Parameters:
//   - hotPercent: Share of hot keys (0.0-1.0, default 0.05)
//   - hotWeight: Weight of a hot key (default 100)
//   - coldWeight: Weight of every other key (default 1)
func NewHotSetWeightGenerator(hotPercent float64, hotWeight, coldWeight int64) *HotSetWeightGenerator {
	if hotPercent <= 0 || hotPercent >= 1 {
		hotPercent = 0.05
	}
	if hotWeight <= 0 {
		hotWeight = 100
	}
	if coldWeight <= 0 {
		coldWeight = 1
	}

	return &HotSetWeightGenerator{hotPercent: hotPercent, hotWeight: hotWeight, coldWeight: coldWeight}
}

// GenerateWeights implements WeightGenerator. The first keys form the hot set;
// at least one key is hot.
func (g *HotSetWeightGenerator) GenerateWeights(keyCount int) []int64 {
	weights := make([]int64, keyCount)
	hot := max(1, int(float64(keyCount)*g.hotPercent))
	for i := range weights {
		if i < hot {
			weights[i] = g.hotWeight
		} else {
			weights[i] = g.coldWeight
		}
	}

	return weights
}

// picker draws indexes proportionally to their weight.
type picker struct {
	cumulative []int64
	total      int64
}

func newPicker(weights []int64) *picker {
	p := &picker{cumulative: make([]int64, len(weights))}
	for i, w := range weights {
		p.total += w
		p.cumulative[i] = p.total
	}

	return p
}

func (p *picker) pick(rng *rand.Rand) int {
	if p.total <= 0 {
		return 0
	}

	n := rng.Int64N(p.total)
	lo, hi := 0, len(p.cumulative)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if p.cumulative[mid] > n {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	return lo
}
