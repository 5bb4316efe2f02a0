// Package interpreter turns a transcribed utterance into an Intent. It is a
// fixed-priority rule table over trigger substrings; it never touches the
// ledger.
package interpreter

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind names what an utterance asks for.
type Kind string

const (
	KindBalance  Kind = "balance"
	KindSplit    Kind = "split"
	KindRequest  Kind = "request"
	KindSend     Kind = "send"
	KindHistory  Kind = "history"
	KindContacts Kind = "contacts"
	KindHelp     Kind = "help"
	KindUnknown  Kind = "unknown"
)

const (
	guideSplitAmount   = "Please specify an amount to split. For example: 'split 100 dollars with Alice' or 'split 150 between Alice, Bob, Carol'"
	guideSplitNames    = "Please specify contact names. For example: 'split 100 dollars with Alice' or 'split 150 between Alice, Bob, Carol'"
	guideRequestAmount = "Please specify an amount to request. For example: 'request 50 dollars from Eric'"
	guideRequestName   = "Please specify a contact name. For example: 'request 50 dollars from Eric'"
	guideSendName      = "Please specify a contact name. For example: 'send 25 dollars to Ms' or 'send money to John'"
)

// DefaultSendAmount is used when a send names a contact but no amount.
var DefaultSendAmount = decimal.NewFromInt(25)

// Intent is the parsed meaning of one utterance. When Guidance is set the
// utterance was recognised but incomplete and nothing should be executed.
type Intent struct {
	Kind      Kind
	Utterance string
	Amount    decimal.Decimal
	// DefaultAmount marks a send whose amount was not spoken.
	DefaultAmount bool
	Contact       string
	// Contacts is set for splits naming several people. The speaker has
	// already been removed.
	Contacts []string
	Multi    bool
	Guidance string
}

// Interpreter holds the tunables of the rule table.
type Interpreter struct {
	DefaultSendAmount decimal.Decimal
}

// New returns an Interpreter that fills amount-less sends with defaultSend.
func New(defaultSend decimal.Decimal) *Interpreter {
	return &Interpreter{DefaultSendAmount: defaultSend}
}

// Interpret parses utterance with the package defaults.
func Interpret(utterance string) Intent {
	return New(DefaultSendAmount).Interpret(utterance)
}

type rule struct {
	kind     Kind
	triggers []string
	build    func(in *Interpreter, text string) Intent
}

// rules are evaluated in priority order; an utterance containing several
// triggers resolves to the first rule listed.
var rules = []rule{
	{KindBalance, []string{"balance", "check balance", "how much"}, nil},
	{KindSplit, []string{"split"}, (*Interpreter).split},
	{KindRequest, []string{"request", "ask for"}, (*Interpreter).request},
	{KindSend, []string{"send", "give", "pay"}, (*Interpreter).send},
	{KindHistory, []string{"transaction", "history"}, nil},
	{KindContacts, []string{"contacts", "contact"}, nil},
	{KindHelp, []string{"help"}, nil},
}

// Interpret classifies utterance.
func (in *Interpreter) Interpret(utterance string) Intent {
	text := normalize(utterance)
	for _, r := range rules {
		if !containsAny(text, r.triggers) {
			continue
		}
		var intent Intent
		if r.build != nil {
			intent = r.build(in, text)
		}
		intent.Kind = r.kind
		intent.Utterance = utterance
		return intent
	}
	return Intent{Kind: KindUnknown, Utterance: utterance}
}

func (in *Interpreter) split(text string) Intent {
	amount, ok := ExtractAmount(text)
	if !ok {
		return Intent{Guidance: guideSplitAmount}
	}

	// Any listed name, even a single one, takes the multi-contact path.
	if listed := ExtractContactNames(text); len(listed) > 0 {
		var names []string
		for _, n := range listed {
			if !IsSpeaker(n) {
				names = append(names, n)
			}
		}
		return Intent{Amount: amount, Contacts: names, Multi: true}
	}

	name, ok := ExtractContactName(text)
	if !ok {
		return Intent{Amount: amount, Guidance: guideSplitNames}
	}
	return Intent{Amount: amount, Contact: name}
}

func (in *Interpreter) request(text string) Intent {
	amount, ok := ExtractAmount(text)
	if !ok {
		return Intent{Guidance: guideRequestAmount}
	}
	name, ok := ExtractContactName(text)
	if !ok {
		return Intent{Amount: amount, Guidance: guideRequestName}
	}
	return Intent{Amount: amount, Contact: name}
}

func (in *Interpreter) send(text string) Intent {
	name, ok := ExtractContactName(text)
	if !ok {
		return Intent{Guidance: guideSendName}
	}
	amount, ok := ExtractAmount(text)
	if !ok {
		return Intent{Amount: in.DefaultSendAmount, DefaultAmount: true, Contact: name}
	}
	return Intent{Amount: amount, Contact: name}
}

func containsAny(text string, triggers []string) bool {
	for _, t := range triggers {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}
