package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Minesweeper-World/msreplay/internal/archive"
)

var archiveLimit int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the local replay archive",
	Long: `Manage the local replay archive.

The archive stores analysed replays in a SQLite database, keeping the
original file bytes compressed so any replay can be re-decoded later.

Example:
  msreplay archive add game.avf       # Analyse and store a replay
  msreplay archive list               # List archived replays
  msreplay archive export 3 out.avf   # Write back the original bytes
  msreplay archive delete 3           # Remove a replay`,
}

var archiveAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Analyse replays and add them to the archive",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runArchiveAdd,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived replays",
	RunE:  runArchiveList,
}

var archiveExportCmd = &cobra.Command{
	Use:   "export <id> <output>",
	Short: "Write an archived replay's original bytes to a file",
	Args:  cobra.ExactArgs(2),
	RunE:  runArchiveExport,
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a replay from the archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runArchiveDelete,
}

func init() {
	archiveListCmd.Flags().IntVarP(&archiveLimit, "limit", "n", 20, "Maximum number of replays to show")

	archiveCmd.AddCommand(archiveAddCmd)
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveExportCmd)
	archiveCmd.AddCommand(archiveDeleteCmd)
	rootCmd.AddCommand(archiveCmd)
}

func getArchive() (archive.Store, error) {
	cfg := loadConfig()
	initLogging(cfg)

	store, err := archive.NewSQLiteStore(cfg.Settings.Archive.Path, cfg.Settings.Archive.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return store, nil
}

func runArchiveAdd(cmd *cobra.Command, args []string) error {
	store, err := getArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, path := range args {
		s, raw, err := decodeAndAnalyse(path)
		if err != nil {
			return err
		}
		id, err := store.Add(filepath.Base(path), raw, s)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s as #%d (%dx%d, 3BV %d, %.3fs)\n",
			filepath.Base(path), id, s.Width, s.Height,
			s.Static.BBBV, s.GameDynamic.RTime)
	}
	return nil
}

func runArchiveList(cmd *cobra.Command, args []string) error {
	store, err := getArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(archiveLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No archived replays found.")
		return nil
	}

	fmt.Printf("%-5s  %-24s  %-12s  %-9s  %5s  %8s  %6s  %s\n",
		"ID", "FILE", "PLAYER", "BOARD", "3BV", "TIME", "STNB", "RESULT")
	fmt.Println(strings.Repeat("-", 90))
	for _, rec := range records {
		result := "Loss"
		if rec.Completed {
			result = "Win"
		}
		fileName := rec.FileName
		if len(fileName) > 24 {
			fileName = fileName[:21] + "..."
		}
		player := rec.Player
		if len(player) > 12 {
			player = player[:9] + "..."
		}
		fmt.Printf("%-5d  %-24s  %-12s  %3dx%-5d  %5d  %7.3fs  %6.1f  %s\n",
			rec.ID, fileName, player,
			rec.Width, rec.Height, rec.BBBV, rec.RTime, rec.STNB, result)
	}
	return nil
}

func runArchiveExport(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid replay id: %s", args[0])
	}

	store, err := getArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[1], rec.Raw, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[1], err)
	}
	fmt.Printf("Wrote %s (%d bytes)\n", args[1], len(rec.Raw))
	return nil
}

func runArchiveDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid replay id: %s", args[0])
	}

	store, err := getArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Deleted replay #%d\n", id)
	return nil
}
