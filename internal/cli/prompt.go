package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForHint asks for an optional colorization hint on one line.
// Returns "" if the user enters nothing or input cannot be read.
func PromptForHint(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, "Hint (optional, e.g. \"the car was dark red\"): ")

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		if err != io.EOF {
			log.Warn().Err(err).Msg("Failed to read input, continuing without a hint")
		}
		return ""
	}

	return strings.TrimSpace(input)
}
