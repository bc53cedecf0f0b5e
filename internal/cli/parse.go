package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Minesweeper-World/msreplay/internal/board"
	"github.com/Minesweeper-World/msreplay/internal/codec"
	"github.com/Minesweeper-World/msreplay/internal/config"
	"github.com/Minesweeper-World/msreplay/internal/logger"
	"github.com/Minesweeper-World/msreplay/internal/replay"
)

var (
	parseJSON   bool
	parseEvents bool
	parseBoard  bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Decode and analyse a replay",
	Long: `Decode a replay file, re-play it through the state machine and print the
derived statistics. The format is picked from the file extension: .avf for
legacy Arbiter recordings, anything else is treated as EVF.

Example:
  msreplay parse game.avf
  msreplay parse game.evf --json
  msreplay parse game.avf --board --events`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Output statistics as JSON")
	parseCmd.Flags().BoolVar(&parseEvents, "events", false, "Dump the event list")
	parseCmd.Flags().BoolVar(&parseBoard, "board", false, "Print the final visible board")

	rootCmd.AddCommand(parseCmd)
}

func initLogging(cfg *config.Config) {
	if verbose {
		_ = logger.Init("debug", cfg.Settings.LogFile)
	} else {
		logger.InitQuiet()
	}
}

func loadConfig() *config.Config {
	loader, err := config.NewLoader(projectDir)
	if err != nil {
		return config.DefaultConfig()
	}
	if configFile != "" {
		cfg, err := loader.LoadFromFile(configFile)
		if err == nil {
			return cfg
		}
	}
	cfg, err := loader.Load()
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

func decodeAndAnalyse(path string) (*replay.Session, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	s, err := codec.Decode(filepath.Base(path), data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if err := s.Analyse(); err != nil {
		return nil, nil, fmt.Errorf("failed to analyse %s: %w", path, err)
	}
	return s, data, nil
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	initLogging(cfg)

	s, _, err := decodeAndAnalyse(args[0])
	if err != nil {
		return err
	}

	if parseJSON {
		out := map[string]interface{}{
			"file":        filepath.Base(args[0]),
			"software":    string(s.Software),
			"player":      string(s.PlayerDesignator),
			"width":       s.Width,
			"height":      s.Height,
			"mines":       s.MineNum,
			"completed":   s.IsCompleted,
			"rtime":       s.GameDynamic.RTime,
			"bbbv":        s.Static.BBBV,
			"bbbv_solved": s.VideoDynamic.BBBVSolved,
			"bbbv_s":      s.VideoDynamic.BBBVS,
			"op":          s.Static.Op,
			"isl":         s.Static.Isl,
			"left":        s.GameDynamic.Left,
			"right":       s.GameDynamic.Right,
			"double":      s.GameDynamic.Double,
			"cl":          s.GameDynamic.Cl,
			"cl_s":        s.GameDynamic.ClS,
			"flags":       s.GameDynamic.Flag,
			"ce":          s.VideoDynamic.CE,
			"ce_s":        s.VideoDynamic.CES,
			"etime":       s.ETime(),
			"rqp":         s.VideoDynamic.RQP,
			"qg":          s.VideoDynamic.QG,
			"stnb":        s.VideoDynamic.STNB,
			"ioe":         s.VideoDynamic.IOE,
			"corr":        s.VideoDynamic.Corr,
			"thrp":        s.VideoDynamic.Thrp,
			"path":        s.Path(),
			"events":      len(s.Events),
		}
		jsonBytes, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonBytes))
		return nil
	}

	result := "Loss"
	if s.IsCompleted {
		result = "Win"
	}
	fmt.Printf("Replay: %s\n", filepath.Base(args[0]))
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Software: %s  Player: %s\n", s.Software, s.PlayerDesignator)
	fmt.Printf("Board:    %dx%d, %d mines  (op %d, isl %d)\n",
		s.Width, s.Height, s.MineNum, s.Static.Op, s.Static.Isl)
	fmt.Printf("Result:   %s in %.3fs\n", result, s.GameDynamic.RTime)
	fmt.Println()
	fmt.Printf("3BV:   %d (%d solved)   3BV/s: %.3f   ETime: %.3f\n",
		s.Static.BBBV, s.VideoDynamic.BBBVSolved, s.VideoDynamic.BBBVS, s.ETime())
	fmt.Printf("Clicks: %dL %dR %dD = %d (%.3f/s)   Flags: %d\n",
		s.GameDynamic.Left, s.GameDynamic.Right, s.GameDynamic.Double,
		s.GameDynamic.Cl, s.GameDynamic.ClS, s.GameDynamic.Flag)
	fmt.Printf("CE: %d (%.3f/s)   IOE: %.3f   Corr: %.3f   Thrp: %.3f\n",
		s.VideoDynamic.CE, s.VideoDynamic.CES,
		s.VideoDynamic.IOE, s.VideoDynamic.Corr, s.VideoDynamic.Thrp)
	fmt.Printf("RQP: %.3f   QG: %.3f   STNB: %.3f   Path: %.1f\n",
		s.VideoDynamic.RQP, s.VideoDynamic.QG, s.VideoDynamic.STNB, s.Path())

	if parseBoard && len(s.Events) > 0 {
		fmt.Println()
		printGameBoard(s.GameBoardAt(len(s.Events) - 1))
	}

	if parseEvents {
		fmt.Println()
		fmt.Printf("Events (%d):\n", len(s.Events))
		fmt.Println(strings.Repeat("-", 60))
		for i, ev := range s.Events {
			if ev.Action == replay.ActionMove && !verbose {
				continue
			}
			fmt.Printf("%6d  %9.3fs  %-3s  (%4d,%4d)  level %d  %s\n",
				i, ev.Time, ev.Action, ev.X, ev.Y, ev.Level, ev.Mouse)
		}
	}

	return nil
}

func printGameBoard(gb [][]int) {
	for _, row := range gb {
		var b strings.Builder
		for _, v := range row {
			switch v {
			case board.Unopened:
				b.WriteString(" .")
			case board.Flagged:
				b.WriteString(" F")
			case board.MineShown, board.Mine:
				b.WriteString(" *")
			case 0:
				b.WriteString("  ")
			default:
				fmt.Fprintf(&b, " %d", v)
			}
		}
		fmt.Println(b.String())
	}
}
