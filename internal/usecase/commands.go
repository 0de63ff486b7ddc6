package usecase

import "strings"

const (
	replySearchPrompt = "Please enter the vehicle registration number."
	replyHello        = "Hello! How can I help you today?"
	replyBye          = "Goodbye! Have a great day!"
	replyHelp         = `First send a command to the bot "search vehicle" then enter a registered vehicle number.`
	replyDeveloper    = "My developer is Kevin AKA Ayush Kumar Barnwal."
	replyStart        = `Send "search vehicle" to look up a registered vehicle.`
	replyName         = "My name is CyberRakshak_Bot."
	replyFallback     = "I'm not sure how to respond to that. Can you please try again?"
	replyNoData       = "Oops, we don't have data."
)

// Matcher reports whether normalized message text selects a command.
type Matcher func(normalized string) bool

// Command pairs a matcher with its action: a static reply, optionally
// switching the participant to awaiting an identifier.
type Command struct {
	Name            string
	Match           Matcher
	Reply           string
	AwaitIdentifier bool
}

// containsWord matches a single keyword anywhere in the text.
func containsWord(keyword string) Matcher {
	keyword = strings.ToLower(keyword)
	return func(normalized string) bool {
		return strings.Contains(normalized, keyword)
	}
}

// containsPhrase matches words appearing in order separated by whitespace.
func containsPhrase(words ...string) Matcher {
	phrase := normalizeCommandText(strings.Join(words, " "))
	return func(normalized string) bool {
		return strings.Contains(normalized, phrase)
	}
}

// normalizeCommandText lowercases text and collapses whitespace runs.
func normalizeCommandText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// defaultCommands is evaluated in order and the first match wins. The
// multi-word search phrase comes first so single-word keywords inside the same
// message cannot pre-empt it.
func defaultCommands() []Command {
	return []Command{
		{Name: "search", Match: containsPhrase("search", "vehicle"), Reply: replySearchPrompt, AwaitIdentifier: true},
		{Name: "hello", Match: containsWord("hello"), Reply: replyHello},
		{Name: "bye", Match: containsWord("bye"), Reply: replyBye},
		{Name: "help", Match: containsWord("help"), Reply: replyHelp},
		{Name: "developer", Match: containsWord("developer"), Reply: replyDeveloper},
		{Name: "start", Match: containsWord("start"), Reply: replyStart},
		{Name: "name", Match: containsWord("name"), Reply: replyName},
	}
}

func matchCommand(commands []Command, text string) (Command, bool) {
	normalized := normalizeCommandText(text)
	for _, cmd := range commands {
		if cmd.Match(normalized) {
			return cmd, true
		}
	}
	return Command{}, false
}
