// Package console implements the interactive line console and the shared
// command executor behind it (the web console's /api/command endpoint runs the
// same commands).
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/onnwee/bopper/bot"
)

// Quitter requests process shutdown (normally the root context cancel).
type Quitter func()

// Execute runs one console command line against the session and returns the
// text to show. Unknown commands and empty lines return an empty string.
func Execute(ctx context.Context, s *bot.Session, line string, quit Quitter) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	cmd := fields[0]

	switch cmd {
	case "help":
		if len(fields) >= 2 {
			return helpFor(fields[1])
		}
		return helpFor("")

	case "quit", "exit":
		if quit != nil {
			quit()
		}
		return "Exiting..."

	case "reset":
		if err := s.Reset(ctx); err != nil {
			slog.Error("reset failed", slog.Any("err", err))
			return "Error: " + err.Error()
		}
		return "Cleared tippers list and rebuilt the playlist cache."

	case "refresh":
		if err := s.Refresh(ctx); err != nil {
			slog.Error("refresh failed", slog.Any("err", err))
			return "Error: " + err.Error()
		}
		return "Rebuilt the playlist cache."

	case "give":
		if len(fields) < 2 {
			return "No <username> specified."
		}
		balance := s.Give(fields[1])
		return fmt.Sprintf("%s now has %d song request credit(s).", fields[1], balance)

	case "tippers", "donors":
		entries := s.Tippers()
		if len(entries) == 0 {
			return "No tippers yet."
		}
		var b strings.Builder
		for _, e := range entries {
			fmt.Fprintf(&b, "%s: %d\n", e.Identity, e.Credit)
		}
		return strings.TrimRight(b.String(), "\n")

	case "playlist":
		entries := s.PlaylistEntries()
		var b strings.Builder
		for i, e := range entries {
			marker := " "
			if e.Requested {
				marker = "*"
			}
			fmt.Fprintf(&b, "%4d %s %s by %s\n", i+1, marker, e.Track.Name, e.Track.Artist)
		}
		return strings.TrimRight(b.String(), "\n")

	case "start":
		s.Start()
		return "Requests are enabled."

	case "stop":
		s.Stop()
		return "Requests are disabled."
	}

	return "Unknown command. Type \"help\" for a list of commands."
}

var helpTopics = map[string]string{
	"":         `Commands: stop, start, tippers, playlist, refresh, reset, give, help, quit (or exit). For further help, type "help <command>".`,
	"quit":     `The "quit" command deactivates the bot and exits the program.`,
	"help":     `The "help" command provides... help.`,
	"reset":    `The "reset" command reverts the bot back to the startup state.`,
	"refresh":  `The "refresh" command is like reset but keeps the tippers list and the credit associated with each tipper.`,
	"tippers":  `The "tippers" command prints each tipper's twitch username and their credit.`,
	"playlist": `The "playlist" command dumps the cached playlist; requested tracks are marked with *.`,
	"start":    `The "start" command enables song requests.`,
	"stop":     `The "stop" command disables song requests.`,
	"give":     `The "give <username>" command will give 1 credit to <username>.`,
}

func helpFor(topic string) string {
	if t, ok := helpTopics[topic]; ok {
		return t
	}
	topics := make([]string, 0, len(helpTopics))
	for k := range helpTopics {
		if k != "" {
			topics = append(topics, k)
		}
	}
	sort.Strings(topics)
	return "No help for that. Topics: " + strings.Join(topics, ", ")
}

// Run reads command lines from r until EOF or ctx is done, printing command
// output to w. It blocks; main runs it as the foreground loop.
func Run(ctx context.Context, s *bot.Session, r io.Reader, w io.Writer, quit Quitter) {
	fmt.Fprintln(w, helpFor(""))
	scanner := bufio.NewScanner(r)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if out := Execute(ctx, s, line, quit); out != "" {
				fmt.Fprintln(w, out)
			}
		}
	}
}
