package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

func errRequired(what string) error {
	return errors.Errorf("%s required", what)
}

// stdinAuthenticator stands in for a platform biometric prompt: it asks on
// the terminal and treats "y" as a passed assertion.
type stdinAuthenticator struct{}

func (stdinAuthenticator) Authenticate(ctx context.Context, prompt string) (bool, error) {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}
