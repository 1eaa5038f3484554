package trace

// PredictorConfig sizes the branch predictor tables. Sizes must be powers
// of two; zero selects the default.
type PredictorConfig struct {
	BHTSize uint32
	BTBSize uint32
}

// DefaultPredictorConfig returns a 1024-entry BHT and a 256-entry BTB.
func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		BHTSize: 1024,
		BTBSize: 256,
	}
}

// PredictorStats holds branch predictor statistics.
type PredictorStats struct {
	Predictions    uint64
	Mispredictions uint64
	BTBHits        uint64
	BTBMisses      uint64
}

// MispredictionRate returns the fraction of mispredicted branches.
func (s PredictorStats) MispredictionRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Predictions)
}

type btbEntry struct {
	pc     uint64
	target uint64
	valid  bool
}

// BranchPredictor is a bimodal predictor of 2-bit saturating counters
// with a direct-mapped branch target buffer.
type BranchPredictor struct {
	// 0 strongly not taken ... 3 strongly taken
	bht []uint8
	btb []btbEntry

	stats PredictorStats
}

// NewBranchPredictor creates a predictor biased towards taken.
func NewBranchPredictor(config PredictorConfig) *BranchPredictor {
	def := DefaultPredictorConfig()
	if config.BHTSize == 0 {
		config.BHTSize = def.BHTSize
	}
	if config.BTBSize == 0 {
		config.BTBSize = def.BTBSize
	}

	bp := &BranchPredictor{
		bht: make([]uint8, config.BHTSize),
		btb: make([]btbEntry, config.BTBSize),
	}
	for i := range bp.bht {
		bp.bht[i] = 2
	}

	return bp
}

func (bp *BranchPredictor) bhtIndex(pc uint64) uint64 {
	return (pc >> 2) & uint64(len(bp.bht)-1)
}

func (bp *BranchPredictor) btbIndex(pc uint64) uint64 {
	return (pc >> 2) & uint64(len(bp.btb)-1)
}

// Resolve predicts the branch at pc, trains the tables with the actual
// outcome and reports whether the prediction was wrong. A taken branch
// is mispredicted unless the BTB also supplied the right target.
func (bp *BranchPredictor) Resolve(pc uint64, taken bool, target uint64) bool {
	i := bp.bhtIndex(pc)
	counter := bp.bht[i]
	predictTaken := counter >= 2

	e := &bp.btb[bp.btbIndex(pc)]
	targetKnown := e.valid && e.pc == pc
	if targetKnown {
		bp.stats.BTBHits++
	} else {
		bp.stats.BTBMisses++
	}

	mispredicted := predictTaken != taken
	if taken && !mispredicted && (!targetKnown || e.target != target) {
		mispredicted = true
	}

	bp.stats.Predictions++
	if mispredicted {
		bp.stats.Mispredictions++
	}

	switch {
	case taken && counter < 3:
		bp.bht[i] = counter + 1
	case !taken && counter > 0:
		bp.bht[i] = counter - 1
	}

	if taken {
		*e = btbEntry{pc: pc, target: target, valid: true}
	}

	return mispredicted
}

// Stats returns the predictor statistics.
func (bp *BranchPredictor) Stats() PredictorStats {
	return bp.stats
}
