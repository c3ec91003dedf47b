package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/easeaico/utbot/internal/app"
	"github.com/easeaico/utbot/internal/chatbot"
	"github.com/easeaico/utbot/internal/config"
	"github.com/easeaico/utbot/internal/finance"
	"github.com/easeaico/utbot/internal/personality"
	"github.com/easeaico/utbot/internal/session"
	"github.com/easeaico/utbot/internal/utils"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := app.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	archive, err := app.NewArchive(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	c := &console{
		out:      cmd.OutOrStdout(),
		banner:   cfg.FailureDisplay == config.FailureBanner,
		analyzer: app.NewAnalyzer(cfg),
		dataDir:  cfg.FinanceDataDir,
	}
	sess, err := session.New(session.Config{
		Picker:         app.NewPicker(cfg),
		TeacherName:    cfg.TeacherName,
		TeacherSubject: cfg.TeacherSubject,
		NewBot: func(profile personality.Profile) (*chatbot.Bot, error) {
			return chatbot.New(client, app.BotConfig(cfg, profile, archive, nil))
		},
		OnDelta: c.delta,
	})
	if err != nil {
		return err
	}
	c.sess = sess
	return c.run(ctx, cmd.InOrStdin())
}

// console drives a session over a line-oriented terminal.
type console struct {
	out      io.Writer
	sess     *session.Session
	banner   bool
	analyzer *finance.Analyzer
	dataDir  string

	// streaming is set once the first chunk of the current reply is printed.
	streaming bool
}

func (c *console) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(c.out, "LLM Chat started!")
	fmt.Fprintln(c.out, session.Menu())
	for c.sess.State() != session.Terminated {
		fmt.Fprint(c.out, c.sess.Prompt())
		if !scanner.Scan() {
			// EOF behaves like exit.
			fmt.Fprintln(c.out)
			return scanner.Err()
		}

		c.streaming = false
		out, err := c.sess.Handle(ctx, scanner.Text())
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(c.out, "\nGoodbye!")
				return nil
			}
			return err
		}
		c.print(out)

		if c.sess.State() == session.FinanceMode {
			exit, err := c.financeMode(ctx, scanner)
			if err != nil {
				return err
			}
			c.print(c.sess.LeaveFinance(exit))
		}
	}
	return nil
}

func (c *console) delta(chunk string) {
	if !c.streaming {
		c.streaming = true
		if bot := c.sess.Bot(); bot != nil {
			fmt.Fprintf(c.out, "%s: ", bot.Name())
		}
	}
	fmt.Fprint(c.out, utils.DisplayDelta(chunk))
}

func (c *console) print(out session.Output) {
	switch out.Kind {
	case session.Notice:
		if out.Text != "" {
			fmt.Fprintln(c.out, out.Text)
		}
	case session.Failure:
		if c.streaming {
			fmt.Fprintln(c.out)
		}
		if c.banner {
			fmt.Fprintf(c.out, "[!] %s\n", out.Text)
			return
		}
		fmt.Fprintf(c.out, "%s: %s\n", out.Speaker, out.Text)
	default:
		if c.streaming {
			fmt.Fprintln(c.out)
			return
		}
		fmt.Fprintf(c.out, "%s: %s\n", out.Speaker, out.Text)
	}
}

// financeMode runs analyses until the user types quit (back to chat) or
// exit (end the conversation).
func (c *console) financeMode(ctx context.Context, scanner *bufio.Scanner) (exit bool, err error) {
	fmt.Fprintln(c.out, strings.Repeat("=", 32))
	fmt.Fprintln(c.out, "Commands:\n- 'quit': Return to chat mode\n- 'exit': End conversation")
	fmt.Fprintln(c.out, strings.Repeat("-", 32))

	w := &wizard{in: scanner, out: c.out, defaultDir: c.dataDir}
	for {
		req, cmd, err := w.collect()
		if err != nil {
			return false, err
		}
		switch cmd {
		case cmdQuit:
			return false, nil
		case cmdExit:
			return true, nil
		}

		report, err := c.analyzer.Run(ctx, req)
		printReport(c.out, report, err)
		fmt.Fprintln(c.out, "\n"+strings.Repeat("=", 50))
		fmt.Fprintln(c.out, "Analysis complete. You can run another analysis or type 'quit' to return to chat mode.")
	}
}
