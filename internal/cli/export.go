package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Minesweeper-World/msreplay/internal/codec"
)

var exportForce bool

var exportCmd = &cobra.Command{
	Use:   "export <file> [output]",
	Short: "Re-encode a replay as EVF",
	Long: `Decode a replay file and write it back out in the open EVF format. Legacy
AVF recordings are converted; EVF recordings round-trip byte for byte.

The output path defaults to the input name with an .evf extension.

Example:
  msreplay export game.avf
  msreplay export game.avf converted.evf`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVarP(&exportForce, "force", "f", false, "Overwrite the output file if it exists")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	initLogging(cfg)

	inPath := args[0]
	outPath := strings.TrimSuffix(inPath, filepath.Ext(inPath)) + ".evf"
	if len(args) == 2 {
		outPath = args[1]
	}
	if outPath == inPath {
		return fmt.Errorf("output path equals input path: %s", outPath)
	}
	if !exportForce {
		if _, err := os.Stat(outPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
		}
	}

	s, _, err := decodeAndAnalyse(inPath)
	if err != nil {
		return err
	}

	out, err := codec.EncodeEVF(s)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", outPath, err)
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote %s (%d bytes, %d events)\n", outPath, len(out), len(s.Events))
	return nil
}
