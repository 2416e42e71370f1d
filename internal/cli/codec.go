package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/optionscalc/internal/codec"
	"github.com/alanyoungcy/optionscalc/internal/domain"
)

type decodeOutput struct {
	Format codec.Format `json:"format"`
	State  domain.State `json:"state"`
}

func newDecodeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Print the state carried by a token",
		Example: `  optctl decode eyJvcHRpb25zIjpb...
  optctl decode "$(pbpaste)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, format, err := codec.DecodeFormat(args[0])
			if err != nil {
				return err
			}
			app.Logger.Debug("decoded token", slog.String("format", string(format)), slog.Int("legs", len(state.Legs)))
			return writeJSON(cmd.OutOrStdout(), decodeOutput{Format: format, State: state})
		},
	}
}

func newEncodeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <state.json|->",
		Short: "Encode a JSON state as a token",
		Example: `  optctl encode book.json
  optctl encode --legacy book.json
  cat book.json | optctl encode -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			legacy, _ := cmd.Flags().GetBool("legacy")

			data, err := readInput(cmd, args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			state, err := parseStateJSON(data)
			if err != nil {
				return err
			}

			format := codec.FormatV2
			if legacy {
				format = codec.FormatLegacy
			}
			token, err := codec.EncodeAs(state, format)
			if err != nil {
				return err
			}
			app.Logger.Debug("encoded state", slog.String("format", string(format)), slog.Int("bytes", len(token)))
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Bool("legacy", false, "write the legacy binary layout")
	return cmd
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <token>",
		Short: "Rewrite a legacy token in the canonical format",
		Long: `Rewrite a legacy token in the canonical format.

Tokens that are already canonical are re-encoded unchanged in meaning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, format, err := codec.DecodeFormat(args[0])
			if err != nil {
				return err
			}
			if format != codec.FormatLegacy {
				app.Logger.Info("token is not legacy, re-encoding", slog.String("format", string(format)))
			}
			token, err := codec.Encode(state)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}
