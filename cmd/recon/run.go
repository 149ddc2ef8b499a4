package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/recon/internal/service"
	"github.com/mmcdole/recon/internal/stream"
)

// exitError carries the exit code of a finished run
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("run exited with code %d", e.code)
}

type runOptions struct {
	preset  string
	program string
	target  string
	lastRun bool
	verbose bool
	html    bool
	plain   bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run [command...]",
		Short: "Stream a command through the terminal socket",
		Long: `Run sends a command to the terminal socket and streams its output.

Give the command as arguments, or build it from a preset:

  recon run -- deep -p acme -m sub -d example.com
  recon run --preset subdomains --program acme --target example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runHeadless(cmd.Context(), cmd.OutOrStdout(), args, opts)
			var exit exitError
			if errors.As(err, &exit) {
				os.Exit(exit.code)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.preset, "preset", "", "run preset key")
	f.StringVarP(&opts.program, "program", "p", "", "program name for the preset")
	f.StringVarP(&opts.target, "target", "t", "", "target for the preset")
	f.BoolVar(&opts.lastRun, "last-run", false, "only results from the last run (presets that support it)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose tool output")
	f.BoolVar(&opts.html, "html", false, "print the finished output as HTML")
	f.BoolVar(&opts.plain, "plain", false, "strip colour even on a terminal")
	return cmd
}

func runHeadless(ctx context.Context, out io.Writer, args []string, opts runOptions) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	command := strings.Join(args, " ")
	if command == "" {
		if opts.preset == "" {
			return errors.New("give a command or --preset")
		}
		command, err = a.run.Command(service.RunRequest{
			Preset:  opts.preset,
			Program: opts.program,
			Target:  opts.target,
			LastRun: opts.lastRun,
			Verbose: opts.verbose,
		})
		if err != nil {
			return err
		}
	}

	sess, err := a.run.Start(command)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// On a terminal fragments are written as they arrive and the terminal
	// handles carriage returns itself; otherwise the settled output is
	// printed once at the end.
	live := !opts.html && isTerminal(out)
	a.logger.Info("headless run", "session", sess.ID, "command", command)

	sess.Stream(ctx, func(ev stream.Event) {
		if !live || ev.Kind != stream.EventMessage || ev.Msg.Type != stream.TypeOutput {
			return
		}
		data := ev.Msg.Data
		if opts.plain {
			data = stream.Plain(data)
		}
		fmt.Fprint(out, data)
	})
	a.run.Record(sess)

	switch {
	case opts.html:
		fmt.Fprintln(out, stream.HTML(sess.Output()))
	case !live:
		fmt.Fprintln(out, stream.Plain(sess.Output()))
	default:
		fmt.Fprintln(out)
	}

	if sess.Outcome() == stream.StatusErrored {
		return errors.New(sess.ErrorMessage())
	}
	if code, ok := sess.ExitCode(); ok && code != 0 {
		return exitError{code: code}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
