package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/http"
)

// promptString prints label with the default in brackets and returns the
// trimmed answer, or def when the answer is empty.
func promptString(r *bufio.Reader, w io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	input, _ := r.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}

// promptInt is promptString for positive integers. Invalid input keeps def.
func promptInt(r *bufio.Reader, w io.Writer, label string, def int) int {
	input := promptString(r, w, label, strconv.Itoa(def))
	v, err := strconv.Atoi(input)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// promptYesNo returns true for "y" or "yes".
func promptYesNo(r *bufio.Reader, w io.Writer, label string) bool {
	input := strings.ToLower(promptString(r, w, label+" [y/N]", ""))
	return input == "y" || input == "yes"
}

// promptPassword reads a password without echo. Off a terminal it reads a
// plain line from stdin.
func promptPassword(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ensureProxyPassword prompts for the proxy password when the proxy mode
// needs one. The password is never stored in the config file.
func ensureProxyPassword(cfg *config.Config) error {
	if !http.NeedsProxyPassword(cfg) {
		return nil
	}
	pw, err := promptPassword(fmt.Sprintf("Proxy password for %s@%s", cfg.ProxyUser, cfg.ProxyHost))
	if err != nil {
		return err
	}
	cfg.ProxyPassword = pw
	return nil
}
