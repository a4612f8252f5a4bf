package conv

// emailVerbAliases curates the synonym set used to resolve verb-phrase
// search terms over email threads, mirroring the source corpus's
// emailVerbs.json table.
var emailVerbAliases = map[string][]string{
	"send":      {"sent", "sends", "forward", "forwarded"},
	"sent":      {"send", "forwarded"},
	"forward":   {"forwarded", "forwards", "sent", "send"},
	"forwarded": {"forward", "sent"},
	"reply":     {"replied", "responds", "responded"},
	"replied":   {"reply", "responded"},
	"cc":        {"copy", "copied", "carbon copy"},
	"bcc":       {"blind copy", "blind carbon copy"},
	"attach":    {"attached", "attaches", "includes", "included"},
	"request":   {"requested", "requests", "asks for", "asked for"},
	"approve":   {"approved", "approves", "signs off", "signed off"},
}

// LoadEmailAliases bulk-loads the curated email verb alias table into a.
func LoadEmailAliases(a *AliasIndex) {
	a.LoadSeed(emailVerbAliases)
}
