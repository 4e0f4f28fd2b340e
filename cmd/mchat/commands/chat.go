package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mchat/internal/client"
	"mchat/internal/domain"
)

// chat <peer>: send each stdin line to <peer> and print incoming messages
// until EOF or interrupt.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <peer>",
		Short: "Chat interactively with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.Username(args[0])
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			show := client.WithMessageHandler(func(m domain.DecryptedMessage) {
				ts := time.UnixMilli(m.Timestamp).Format(time.TimeOnly)
				fmt.Printf("[%s] %s: %s\n", ts, m.From, m.Plaintext)
			})
			return withSession(ctx, true, func(ctx context.Context, s *client.Session) error {
				s.Directory().Preload(peer)
				fmt.Printf("Chatting with %s. Ctrl-D to quit.\n", peer)

				lines := make(chan string)
				go func() {
					defer close(lines)
					sc := bufio.NewScanner(os.Stdin)
					for sc.Scan() {
						lines <- sc.Text()
					}
				}()
				for {
					select {
					case <-ctx.Done():
						return nil
					case line, ok := <-lines:
						if !ok {
							return nil
						}
						if line = strings.TrimSpace(line); line == "" {
							continue
						}
						if err := s.Send(ctx, peer, line); err != nil {
							fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
						}
					}
				}
			}, show)
		},
	}
}
