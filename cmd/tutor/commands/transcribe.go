package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilofrakh/mostaqlproj1/internal/transcript"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file>",
	Short: "Transcribe a recording with the configured STT provider",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(cmd.Context(), a.Config.Timeout)
	defer cancel()
	// The provider is called directly so failures are reported instead of
	// collapsing to an empty transcript.
	text, err := a.STT.Transcribe(ctx, transcript.Audio{Data: data, Filename: filepath.Base(args[0])})
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), HelpStyle.Render("(no speech)"))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
