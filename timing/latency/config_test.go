package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/uopsim/timing/latency"
)

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Validate()).To(Succeed())
		})

		It("should default to the ROB model on Nehalem", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Microarchitecture).To(Equal("nehalem"))
			Expect(config.TimingModel).To(Equal(latency.TimingModelROB))
			Expect(config.BranchMispredictPenalty).To(Equal(uint64(12)))
		})
	})

	Describe("Validation", func() {
		It("should reject zero dispatch width", func() {
			config := latency.DefaultTimingConfig()
			config.DispatchWidth = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero commit width", func() {
			config := latency.DefaultTimingConfig()
			config.CommitWidth = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject a window smaller than the dispatch width", func() {
			config := latency.DefaultTimingConfig()
			config.WindowSize = 2
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero reservation station entries", func() {
			config := latency.DefaultTimingConfig()
			config.RSEntries = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject a mispredict penalty shorter than the early restart", func() {
			config := latency.DefaultTimingConfig()
			for _, penalty := range []uint64{0, 1} {
				config.BranchMispredictPenalty = penalty
				Expect(config.Validate()).To(MatchError(ContainSubstring("branch_mispredict_penalty")))
			}

			config.BranchMispredictPenalty = 2
			Expect(config.Validate()).To(Succeed())
		})

		It("should reject an unknown microarchitecture", func() {
			config := latency.DefaultTimingConfig()
			config.Microarchitecture = "pentium-pro"
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject an unknown timing model", func() {
			config := latency.DefaultTimingConfig()
			config.TimingModel = "magic"
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject a granularity that is not a power of two", func() {
			config := latency.DefaultTimingConfig()
			config.MemDepGranularity = 12
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject an unaligned cache size", func() {
			config := latency.DefaultTimingConfig()
			config.L1DSize = 1000
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject overrides for unknown opcode classes", func() {
			config := latency.DefaultTimingConfig()
			config.LatencyOverrides = map[string]uint64{"vfmadd": 5}
			Expect(config.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			original.LatencyOverrides = map[string]uint64{"div": 20}
			clone := original.Clone()

			clone.DispatchWidth = 8
			clone.LatencyOverrides["div"] = 40

			Expect(original.DispatchWidth).To(Equal(uint64(4)))
			Expect(original.LatencyOverrides["div"]).To(Equal(uint64(20)))
			Expect(clone.DispatchWidth).To(Equal(uint64(8)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.WindowSize = 192
			original.Microarchitecture = "cortex-a53"

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.WindowSize).To(Equal(uint64(192)))
			Expect(loaded.Microarchitecture).To(Equal("cortex-a53"))
		})

		It("should keep defaults for fields absent from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			err := os.WriteFile(path, []byte(`{"dispatch_width": 2}`), 0644)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.DispatchWidth).To(Equal(uint64(2)))
			Expect(loaded.CommitWidth).To(Equal(uint64(4)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
