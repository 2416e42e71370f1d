// Package cli provides the optctl command-line interface for inspecting and
// converting state tokens.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/optionscalc/internal/codec"
	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// App holds what every command shares.
type App struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(logger *slog.Logger) *cobra.Command {
	return newRootCmd(&App{Logger: logger, Now: time.Now})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "optctl",
		Short: "Inspect, convert and project option calculator state tokens",
		Long: `optctl works with the state tokens carried in shared calculator links.

It decodes tokens of every known format, re-encodes states, upgrades legacy
tokens to the canonical format and prints the profit projection of a book.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "path to configuration file (db commands)")

	rootCmd.AddCommand(newDecodeCmd(app))
	rootCmd.AddCommand(newEncodeCmd(app))
	rootCmd.AddCommand(newMigrateCmd(app))
	rootCmd.AddCommand(newProjectCmd(app))
	rootCmd.AddCommand(newDBCmd(app))

	return rootCmd
}

// readInput returns the bytes of path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// loadState reads arg as a JSON state file when it names one, and as a
// token otherwise.
func loadState(cmd *cobra.Command, arg string) (domain.State, error) {
	if arg == "-" || isFile(arg) {
		data, err := readInput(cmd, arg)
		if err != nil {
			return domain.State{}, fmt.Errorf("read %s: %w", arg, err)
		}
		return parseStateJSON(data)
	}
	state, err := codec.Decode(arg)
	if err != nil {
		return domain.State{}, err
	}
	return state, nil
}

func parseStateJSON(data []byte) (domain.State, error) {
	state := domain.DefaultState()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&state); err != nil {
		return domain.State{}, fmt.Errorf("parse state json: %w", err)
	}
	if state.Legs == nil {
		state.Legs = []domain.Leg{}
	}
	return state, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
