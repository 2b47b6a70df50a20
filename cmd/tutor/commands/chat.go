package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilofrakh/mostaqlproj1/internal/turn"
)

var chatTutorName string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Converse with the tutor in the terminal",
	Long: `Start a free conversation with the tutor. Each line you type is one turn.

Commands:
  /reset   start a new conversation
  /quit    exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatTutorName, "tutor-name", "n", "", "persona name (default $TUTOR_NAME)")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	name := chatTutorName
	if name == "" {
		name = a.Config.TutorName
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("محادثة مع "+name))
	fmt.Fprintln(out, HelpStyle.Render("/reset to start over, /quit to exit"))

	sessionID := a.Sessions.Get("").ID
	return chatLoop(cmd.InOrStdin(), out, func(line string) (string, error) {
		switch line {
		case "/reset":
			a.Sessions.Remove(sessionID)
			sessionID = a.Sessions.Get("").ID
			return "", nil
		}
		res, err := a.Orchestrator.Chat(ctx, turn.ChatTurn{SessionID: sessionID, UserText: line, TutorName: name})
		if err != nil {
			return "", err
		}
		return res.Reply, nil
	})
}

// chatLoop reads one turn per line from in until EOF or /quit.
func chatLoop(in io.Reader, out io.Writer, respond func(string) (string, error)) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, PromptStyle.Render("> "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		reply, err := respond(line)
		if err != nil {
			fmt.Fprintln(out, ErrorStyle.Render(turn.Message(err)))
			continue
		}
		if reply != "" {
			fmt.Fprintln(out, TutorStyle.Render(reply))
		}
	}
}
