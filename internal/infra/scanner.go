package infra

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PresetScanner is a Scanner whose token is supplied up front (the CLI
// --tag flag). The callback fires synchronously, so by the time the engine's
// start/stop call returns the scan has completed.
type PresetScanner struct {
	Token string
}

// Scan delivers the preset token, or an error when none was supplied.
func (s *PresetScanner) Scan(prompt string, onToken func(string), onError func(string)) {
	if s.Token == "" {
		onError("no token provided; pass --tag or use an interactive scan")
		return
	}
	onToken(s.Token)
}

// LineScanner reads a single token line from an input stream, standing in
// for the NFC/QR hardware layer in interactive CLI use.
type LineScanner struct {
	In  io.Reader
	Out io.Writer
}

// Scan prompts and delivers the next non-empty line as the scanned token.
func (s *LineScanner) Scan(prompt string, onToken func(string), onError func(string)) {
	fmt.Fprintf(s.Out, "%s\nscan> ", prompt)

	reader := bufio.NewReader(s.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		onError("scan aborted")
		return
	}

	token := strings.TrimSpace(line)
	if token == "" {
		onError("empty token")
		return
	}
	onToken(token)
}
