package main

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/lettings-radar/internal/floorplan"
	"github.com/lettings-radar/internal/normalize"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <image-file>",
		Short: "Run the floorplan classifier over a local image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			classifier, err := floorplan.NewClassifier(cfg.ClassifierWeights, cfg.ClassifierThreshold)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			img, _, err := image.Decode(f)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(classifier.Classify(img))
		},
	}
}

func newNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <address>",
		Short: "Show what the street normalizer and outcode extractor make of an address",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, addr := range args {
				fmt.Printf("input:   %s\n", addr)
				fmt.Printf("street:  %s\n", normalize.NormalizeStreet(addr))
				fmt.Printf("outcode: %s\n\n", normalize.ExtractOutcode(addr))
			}
		},
	}
}
