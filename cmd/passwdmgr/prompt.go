package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// stdinReader buffers piped input so several secrets can be read in turn.
var (
	stdinSource io.Reader
	stdinReader *bufio.Reader
)

// masterPassword returns the passphrase from --password or the environment,
// prompting without echo on a terminal. With confirm set the prompt is
// repeated and both entries must match.
func masterPassword(cmd *cobra.Command, prompt string, confirm bool) (string, error) {
	if pw := loader.Passphrase(); pw != "" {
		return pw, nil
	}
	return readSecret(cmd, prompt, confirm)
}

func readSecret(cmd *cobra.Command, prompt string, confirm bool) (string, error) {
	pw, err := promptPassword(cmd, prompt)
	if err != nil {
		return "", err
	}

	if confirm && isTerminal(os.Stdin) {
		again, err := promptPassword(cmd, "Confirm "+strings.ToLower(prompt[:1])+prompt[1:])
		if err != nil {
			return "", err
		}
		if again != pw {
			return "", usageErrorf("passwords do not match")
		}
	}

	return pw, nil
}

// promptPassword reads one line. On a terminal the input is not echoed;
// otherwise it is read from stdin so scripts can pipe it in.
func promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	if !isTerminal(os.Stdin) {
		return readLine(cmd.InOrStdin())
	}

	fmt.Fprint(os.Stderr, prompt)

	// Read password without echo
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // New line after password

	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	return string(password), nil
}

func readLine(r io.Reader) (string, error) {
	if stdinReader == nil || stdinSource != r {
		stdinSource = r
		stdinReader = bufio.NewReader(r)
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// withSpinner runs fn while a spinner turns on stderr. Key derivation takes
// a noticeable moment; off a terminal nothing is drawn.
func withSpinner(message string, fn func() error) error {
	if !isTerminal(os.Stderr) {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message
	s.Start()
	defer s.Stop()

	return fn()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
