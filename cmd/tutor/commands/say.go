package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilofrakh/mostaqlproj1/internal/app"
	"github.com/kilofrakh/mostaqlproj1/internal/tts"
)

var (
	sayVoice    string
	sayProvider string
	sayOutput   string
)

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Synthesize text to an audio file",
	Long: `Synthesize text with a speech provider and write the audio to a file.
PCM providers are written as WAV.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSay,
}

func init() {
	sayCmd.Flags().StringVar(&sayVoice, "voice", "", "voice id (default $ELEVENLABS_VOICE_ID)")
	sayCmd.Flags().StringVar(&sayProvider, "provider", "", "elevenlabs, deepgram or gtts (default $BATCH_TTS_PROVIDER)")
	sayCmd.Flags().StringVarP(&sayOutput, "output", "o", "", "output file (default reply.mp3 or reply.wav)")
}

func runSay(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("nothing to say")
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	voice := a.Batch
	if sayProvider != "" {
		if voice, err = app.NewVoice(a.Config.TTS, sayProvider, a.Logger); err != nil {
			return err
		}
	}
	opts := tts.Options{VoiceID: sayVoice, Language: a.Config.TTS.Language}
	if opts.VoiceID == "" {
		opts.VoiceID = a.Config.TTS.ElevenLabsVoiceID
	}

	ctx, cancel := withTimeout(cmd.Context(), a.Config.Timeout)
	defer cancel()
	start := time.Now()
	audio, err := tts.Collect(ctx, voice, text, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", voice.Info().Provider, err)
	}
	ext := "mp3"
	if voice.Format() == tts.FormatPCM16 {
		rate := 24000
		if sr, ok := voice.(interface{ SampleRate() int }); ok {
			rate = sr.SampleRate()
		}
		audio = tts.WAV(audio, rate)
		ext = "wav"
	}
	out := sayOutput
	if out == "" {
		out = "reply." + ext
	}
	if err := os.WriteFile(out, audio, 0o644); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), HelpStyle.Render(fmt.Sprintf("wrote %s (%d bytes, %s, %s)", out, len(audio), voice.Info().Provider, time.Since(start).Round(time.Millisecond))))
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
