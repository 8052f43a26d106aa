package domain

import "strings"

// StopGateKind is the unified representation of which presented token may
// legally end a session. The legacy single-token field and the whitelist are
// collapsed into one variant at evaluation time so the precedence rule lives
// in exactly one place.
type StopGateKind int

const (
	// GateExact requires one of the profile's dedicated unblock codes.
	GateExact StopGateKind = iota
	// GateWhitelist accepts any case-insensitive whitelist member.
	GateWhitelist
	// GateOriginalOnly accepts only the token that started the session.
	GateOriginalOnly
	// GateUnrestricted accepts any token (force-started, no gates configured).
	GateUnrestricted
)

// StopGate decides whether a presented token may end a given session.
type StopGate struct {
	Kind      StopGateKind
	Tokens    []string            // GateExact: dedicated NFC tag and/or QR code
	Whitelist map[string]struct{} // GateWhitelist, lowercased members
}

// StopGateFor computes the gate for a session of the given profile.
// Precedence: dedicated unblock code, then whitelist, then original-trigger
// (unless force-started), then unrestricted. A profile may carry both a
// dedicated NFC tag and a dedicated QR code; either one satisfies the gate.
func StopGateFor(p *Profile, forceStarted bool) StopGate {
	if tokens := dedicatedUnblockCodes(p); len(tokens) > 0 {
		return StopGate{Kind: GateExact, Tokens: tokens}
	}
	if p.HasWhitelist() {
		set := make(map[string]struct{}, len(p.Whitelist))
		for i := range p.Whitelist {
			set[strings.ToLower(p.Whitelist[i].TagID)] = struct{}{}
		}
		return StopGate{Kind: GateWhitelist, Whitelist: set}
	}
	if !forceStarted {
		return StopGate{Kind: GateOriginalOnly}
	}
	return StopGate{Kind: GateUnrestricted}
}

func dedicatedUnblockCodes(p *Profile) []string {
	var tokens []string
	if p.UnblockTokenID != "" {
		tokens = append(tokens, p.UnblockTokenID)
	}
	if p.UnblockQRCodeID != "" && p.UnblockQRCodeID != p.UnblockTokenID {
		tokens = append(tokens, p.UnblockQRCodeID)
	}
	return tokens
}

// Admit checks the presented token against the gate. originalTag is the token
// that started the session, used by GateOriginalOnly.
func (g StopGate) Admit(presented, originalTag string) error {
	switch g.Kind {
	case GateExact:
		for _, token := range g.Tokens {
			if presented == token {
				return nil
			}
		}
		return ErrWrongToken
	case GateWhitelist:
		if _, ok := g.Whitelist[strings.ToLower(presented)]; !ok {
			return ErrNotWhitelisted
		}
	case GateOriginalOnly:
		if presented != originalTag {
			return ErrMustUseOriginalTrigger
		}
	case GateUnrestricted:
	}
	return nil
}
