package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alem-hub/progression-engine/internal/domain/progress"
)

// LevelResult is one row of the levels output.
type LevelResult struct {
	Points int    `json:"points"`
	Level  int    `json:"level"`
	Title  string `json:"title"`
	progress.LevelProgress
}

// NewLevelsCommand creates the levels command.
func NewLevelsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "levels <points>...",
		Short: "Show the level and progress reached with each point total",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.loadCatalog()
			if err != nil {
				return err
			}
			levels := c.Levels()

			results := make([]LevelResult, 0, len(args))
			for _, arg := range args {
				points, err := strconv.Atoi(arg)
				if err != nil || points < 0 {
					return fmt.Errorf("points must be a non-negative integer, got %q", arg)
				}
				level := levels.LevelOf(points)
				results = append(results, LevelResult{
					Points:        points,
					Level:         level,
					Title:         levels.Title(level),
					LevelProgress: levels.ProgressToNextLevel(points),
				})
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, results)
			}
			for _, r := range results {
				fmt.Fprintf(out, "%6d pts  level %-2d %-12s %3d%%  (%d to next)\n",
					r.Points, r.Level, r.Title, r.Percent, r.PointsToNext)
			}
			return nil
		},
	}
}
