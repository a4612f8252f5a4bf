package conv

// podcastVerbAliases curates the synonym set used to resolve verb-phrase
// search terms over podcast/meeting transcripts, mirroring the source
// corpus's podcastVerbs.json table.
var podcastVerbAliases = map[string][]string{
	"say":      {"said", "states", "stated", "mentions", "mentioned"},
	"said":     {"say", "states", "stated"},
	"ask":      {"asked", "asks", "inquires", "inquired"},
	"asked":    {"ask", "asks", "inquired"},
	"reply":    {"replied", "responds", "responded", "answers", "answered"},
	"replied":  {"reply", "responded", "answered"},
	"discuss":  {"discussed", "discusses", "talks about", "talked about"},
	"explain":  {"explained", "explains", "describes", "described"},
	"agree":    {"agreed", "agrees", "concurs", "concurred"},
	"disagree": {"disagreed", "disagrees", "objects", "objected"},
	"ask for":  {"requests", "requested", "wants"},
}

// LoadPodcastAliases bulk-loads the curated podcast verb alias table into a.
func LoadPodcastAliases(a *AliasIndex) {
	a.LoadSeed(podcastVerbAliases)
}
