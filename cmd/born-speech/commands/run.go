package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/speech/backend/cpu"
	"github.com/born-ml/speech/backend/webgpu"
	"github.com/born-ml/speech/speech"
	"github.com/born-ml/speech/tensor"
)

var (
	runBackend string
	runLabels  string
	runBatch   int
	runFrames  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Decode random features with a freshly built model",
	Long: `Build the model described by --config, feed it a batch of random features
and print the encoder shapes and decoded transcripts. The model is untrained,
so the transcripts only exercise the pipeline.

With --labels (or a vocab section in the configuration) token ids are
decoded to text. --backend webgpu runs the dense kernels on the GPU and
fails when no adapter is available.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if runBatch <= 0 || runFrames <= 0 {
			return fmt.Errorf("--batch and --frames must be positive")
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		v, err := loadVocab(cfg, runLabels)
		if err != nil {
			return err
		}

		switch runBackend {
		case "cpu":
			return decode(cmd, cfg, v, cpu.New())
		case "webgpu":
			gpu, err := webgpu.New()
			if err != nil {
				return err
			}
			defer gpu.Release()
			return decode(cmd, cfg, v, gpu)
		default:
			return fmt.Errorf("unknown backend %q (want cpu or webgpu)", runBackend)
		}
	},
}

// decode builds the model on backend and prints the transcripts of a random
// batch.
func decode[B tensor.Backend](cmd *cobra.Command, cfg *speech.Config, v speech.Vocabulary, backend B) error {
	model, err := speech.New(cfg, backend)
	if err != nil {
		return err
	}

	// Row b keeps frames - b*frames/(2*batch) frames.
	lengths := make([]int, runBatch)
	for b := range lengths {
		lengths[b] = runFrames - b*runFrames/(2*runBatch)
	}
	inputs := tensor.Randn(tensor.Shape{runBatch, runFrames, cfg.Encoder.InputDim}, backend)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "input: %v lengths %v\n", inputs.Shape(), lengths)
	fmt.Fprintf(out, "encoder lengths: %v\n", model.Encoder().OutputLengths(lengths))

	start := time.Now()
	transcripts, err := model.Recognize(cmd.Context(), inputs, lengths)
	if err != nil {
		return err
	}
	logger.Info("decoded", "batch", runBatch, "elapsed", time.Since(start))

	for b, ids := range transcripts {
		if err := printTranscript(cmd, v, b, ids); err != nil {
			return err
		}
	}

	if model.Encoder().HasCTCHead() {
		ctcIDs, err := model.RecognizeCTC(inputs, lengths)
		if err != nil {
			return err
		}
		for b, ids := range ctcIDs {
			fmt.Fprintf(out, "ctc[%d]: %v\n", b, ids)
		}
	}
	return nil
}

func printTranscript(cmd *cobra.Command, v speech.Vocabulary, row int, ids []int32) error {
	if v == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "[%d]: %v\n", row, ids)
		return nil
	}
	text, err := v.Decode(ids)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%d]: %q\n", row, text)
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runBackend, "backend", "cpu", "compute backend: cpu or webgpu")
	runCmd.Flags().StringVar(&runLabels, "labels", "", "CSV label file (id,char,freq)")
	runCmd.Flags().IntVar(&runBatch, "batch", 2, "batch size")
	runCmd.Flags().IntVar(&runFrames, "frames", 100, "input frames per row")
}
