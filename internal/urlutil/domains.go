package urlutil

// DefaultExcludedDomains lists aggregator, news, social, video, marketplace
// and infrastructure domains that never host a tool's own announcement
// page. Used when no EXCLUDED_DOMAINS override is configured. Entries
// starting with "." are suffix patterns (TLD-level exclusions).
var DefaultExcludedDomains = []string{
	"youtube.com", "youtu.be", "reddit.com", "linkedin.com", "facebook.com",
	"twitter.com", "x.com", "tiktok.com", "instagram.com", "pinterest.com",
	"discord.com", "slack.com", "telegram.org",
	"msn.com", "yahoo.com", "cnn.com", "bbc.com", "reuters.com",
	"bloomberg.com", "forbes.com", "techcrunch.com", "venturebeat.com",
	"theverge.com", "wired.com", "cnbc.com", "marketwatch.com",
	"forum.freecodecamp.org", "futuretools.io", "aitools.fyi", "toolify.ai",
	"toolsai.io",
	"g2.com", "capterra.com", "getapp.com", "alternativeto.net", "slant.co",
	"trustpilot.com",
	"fiverr.com", "upwork.com", "freelancer.com", "indeed.com",
	"glassdoor.com", "monster.com",
	"amazon.com", "aliexpress.com", "ebay.com", "apple.com",
	"itunes.apple.com",
	"gov.uk", "gov.in", "gov.au", "gov.ca", "gov.us", "gov.sg",
	".edu", ".ac.uk", ".ac.in",
	"google.com", "bing.com", "duckduckgo.com", "serper.dev", "serpapi.com",
	"patreon.com", "kickstarter.com", "indiegogo.com", "gofundme.com",
	"change.org", "avaaz.org",
	"eventbrite.com", "meetup.com", "eventful.com", "ticketmaster.com",
	"soundcloud.com", "spotify.com",
	"archive.org", "waybackmachine.org",
	"wikipedia.org", "wikidata.org", "wikimedia.org",
	"quora.com", "stackexchange.com", "stackoverflow.com",
	"github.com", "gitlab.com", "bitbucket.org",
	"notion.so", "airtable.com", "asana.com", "trello.com",
	"mailchi.mp", "mailchimp.com", "sendgrid.com", "constantcontact.com",
	"dribbble.com", "behance.net",
	"craigslist.org",
	"medium.com", "substack.com", "news.ycombinator.com", "hackernews.com",
	"hacker-news.com",
}
