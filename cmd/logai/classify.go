package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newClassifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify one log entry and print the verdict",
		Long: `Classify one log entry and print the verdict as JSON.

The entry is the arguments joined by spaces, or standard input when no
arguments are given. Exits with status 2 when the classifier is unavailable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			svc, err := newService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer svc.close()

			verdict, err := svc.decider.Decide(cmd.Context(), text)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(verdict)
		},
	}
	return cmd
}

func inputText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("no log text given: pass it as an argument or on stdin")
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
