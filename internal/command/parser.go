// Package command recognizes the chat commands the assistant can act on.
package command

import (
	"regexp"
	"strings"
)

// Fixed names of the only supported command.
const (
	TokenSymbol    = "SEAM"
	TargetProtocol = "Seamless Protocol"
)

// HelpText is the reply for any input that is not a supported command.
const HelpText = "I can help you delegate your governance tokens. Try: \"delegate <amount> SEAM to Seamless Protocol\" " +
	"(for example \"delegate 10 SEAM to Seamless Protocol\"). Amounts must be whole numbers."

var delegatePattern = regexp.MustCompile(`(?i)^delegate\s+([0-9]+)\s+SEAM\s+to\s+Seamless\s+Protocol$`)

// Delegation is a parsed "delegate N SEAM to Seamless Protocol" command.
type Delegation struct {
	Amount         string
	TokenSymbol    string
	TargetProtocol string
}

// Parse matches input against the delegate command. The amount is returned
// exactly as typed. ok is false for anything else, which is not an error.
func Parse(input string) (amount string, ok bool) {
	m := delegatePattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", false
	}
	if strings.Trim(m[1], "0") == "" {
		return "", false
	}
	return m[1], true
}

// ParseDelegation is Parse with the fixed token and protocol filled in.
func ParseDelegation(input string) (Delegation, bool) {
	amount, ok := Parse(input)
	if !ok {
		return Delegation{}, false
	}
	return Delegation{
		Amount:         amount,
		TokenSymbol:    TokenSymbol,
		TargetProtocol: TargetProtocol,
	}, true
}
