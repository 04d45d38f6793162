// Package alerts turns donation-alert chat lines into credit events. The bot
// never talks to the donation platform; it only parses what the signal bot
// (Streamlabs or similar) announces in chat, using recognizer patterns and
// thresholds supplied by configuration.
package alerts

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies a qualifying support event.
type Kind string

const (
	KindTip    Kind = "tip"
	KindBits   Kind = "bits"
	KindGifted Kind = "gifted"
)

// CreditEvent is one qualifying donation parsed from a single alert line.
type CreditEvent struct {
	Payer  string
	Tokens int
	Kind   Kind
}

// Thresholds are the per-category amounts worth one song request credit.
type Thresholds struct {
	Tip  float64
	Bits int
	// Gifted sub counts per tier, index 0 = Tier 1.
	GiftedTier [3]int
}

type Parser struct {
	signalBot  string
	tip        *regexp.Regexp
	bits       *regexp.Regexp
	gifted     *regexp.Regexp
	thresholds Thresholds
	cumulative bool
}

// New compiles the three recognizer patterns. Patterns must carry the named
// groups payer and amount (plus tier for gifted); config.Validate enforces
// that before the parser is ever built, so a failure here is a programming
// error surfaced as a compile error from regexp.
func New(signalBot, tipPattern, bitsPattern, giftedPattern string, thresholds Thresholds, cumulative bool) (*Parser, error) {
	tip, err := regexp.Compile(tipPattern)
	if err != nil {
		return nil, err
	}
	bits, err := regexp.Compile(bitsPattern)
	if err != nil {
		return nil, err
	}
	gifted, err := regexp.Compile(giftedPattern)
	if err != nil {
		return nil, err
	}
	return &Parser{
		signalBot:  strings.ToLower(signalBot),
		tip:        tip,
		bits:       bits,
		gifted:     gifted,
		thresholds: thresholds,
		cumulative: cumulative,
	}, nil
}

// Parse inspects one chat line. It returns credit events only when the sender
// is the signal bot; all three patterns are attempted, so a single line could
// in principle yield more than one event. Unmatched or sub-threshold lines
// return nil; that is silence, not an error.
func (p *Parser) Parse(sender, text string) []CreditEvent {
	if strings.ToLower(sender) != p.signalBot {
		return nil
	}

	var events []CreditEvent

	if g := namedGroups(p.tip, text); g != nil {
		amount, err := strconv.ParseFloat(g["amount"], 64)
		if err == nil && amount >= p.thresholds.Tip && p.thresholds.Tip > 0 {
			events = append(events, CreditEvent{
				Payer:  g["payer"],
				Tokens: p.tokens(amount / p.thresholds.Tip),
				Kind:   KindTip,
			})
		}
	}

	if g := namedGroups(p.bits, text); g != nil {
		amount, err := strconv.Atoi(g["amount"])
		if err == nil && p.thresholds.Bits > 0 && amount >= p.thresholds.Bits {
			events = append(events, CreditEvent{
				Payer:  g["payer"],
				Tokens: p.tokens(float64(amount) / float64(p.thresholds.Bits)),
				Kind:   KindBits,
			})
		}
	}

	if g := namedGroups(p.gifted, text); g != nil {
		amount, errA := strconv.Atoi(g["amount"])
		tier, errT := strconv.Atoi(g["tier"])
		if errA == nil && errT == nil && tier >= 1 && tier <= 3 {
			threshold := p.thresholds.GiftedTier[tier-1]
			if threshold > 0 && amount >= threshold {
				events = append(events, CreditEvent{
					Payer:  g["payer"],
					Tokens: p.tokens(float64(amount) / float64(threshold)),
					Kind:   KindGifted,
				})
			}
		}
	}

	return events
}

func (p *Parser) tokens(ratio float64) int {
	if !p.cumulative {
		return 1
	}
	return int(math.Floor(ratio))
}

// namedGroups returns a map of named capture groups for the first match of re
// in text, or nil when there is no match.
func namedGroups(re *regexp.Regexp, text string) map[string]string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	out := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(m) {
			out[name] = m[i]
		}
	}
	return out
}
