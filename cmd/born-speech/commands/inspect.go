package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/born-ml/speech/backend/cpu"
	"github.com/born-ml/speech/internal/nn"
	"github.com/born-ml/speech/speech"
)

var inspectFrames int

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build the model and print its sizes",
	Long: `Build the encoder and decoder described by --config and print parameter
counts, the encoder output width and the reduced length of --frames input frames.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		model, err := speech.New(cfg, cpu.New())
		if err != nil {
			return err
		}

		encoder, decoder := model.Encoder(), model.Decoder()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "encoder\t%s + %s x%d\t%d params\n",
			cfg.Encoder.Extractor, cfg.Encoder.RNNType, cfg.Encoder.NumLayers, nn.CountParameters(encoder.Parameters()))
		fmt.Fprintf(w, "decoder\t%d layers x %d heads\t%d params\n",
			cfg.Decoder.NumLayers, cfg.Decoder.NumHeads, nn.CountParameters(decoder.Parameters()))
		fmt.Fprintf(w, "encoder output\t%d wide\tctc head: %v\n", encoder.OutputDim(), encoder.HasCTCHead())
		fmt.Fprintf(w, "frames\t%d -> %d\t\n", inspectFrames, encoder.OutputLengths([]int{inspectFrames})[0])
		fmt.Fprintf(w, "total\t\t%d params\n", nn.CountParameters(model.Parameters()))
		return w.Flush()
	},
}

func init() {
	inspectCmd.Flags().IntVar(&inspectFrames, "frames", 100, "input frames for the length report")
}
