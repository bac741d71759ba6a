package descriptions

import "sort"

// Tool descriptions shown to MCP clients, with examples and workflows.

const (
	QuoteParseMessageDescription = `Extract the quote request fields from a license request message.

**When to use:** You have an email or chat message asking for a license quote and need to see what the bot understands from it.

**What it returns:** A JSON object with name, email, organization, sector (Academic or Industry), number of premium users, license length in years, admin, billing, shipping, VAT/tax ID and the intended users.

**Input:** Either "message" (the text, plain or HTML) or "path" (a .txt, .eml, .html or .pdf file inside the configured input directory). Labelled lines such as "Your name: Jane Lee" work best; free text is also accepted.

**Examples:**
• "Parse this request: Your name: Jane Lee / Your email: jane@uni.edu / How many people need Premium access? 3"
• "Read request-0412.eml and show me the extracted fields"

**Best practices:** Parsing never fails on content. Fields the message does not mention keep their defaults (1 user, 1 year).`

	QuotePreviewMessageDescription = `Show what submitting a quote request would do, without opening a browser.

**When to use:** Before quote_submit_message, to check that the request is complete.

**What it returns:** The extracted fields, the form pages the run would visit, and the labels of required fields that are still missing. "ready" is true when the first page can be filled.

**Common workflows:**
1. quote_preview_message → ask the requester for the missing fields → quote_submit_message
2. quote_preview_message on a PDF form → confirm the user count → submit

**Best practices:** The page sequence depends on the number of premium users: one user, two users, or an admin page for three or more.`

	QuoteSubmitMessageDescription = `Fill in and submit the license quote form for a request message.

**When to use:** The request previews as ready and the requester wants the quote.

**What it returns:** success, a status (submitted, preflight_failed, navigation_failed, page_failed, form_errors, not_submitted, busy ...), a human-readable message and the per-page report.

**Input:** "message" or "path" as for quote_parse_message, and optional "headless" (default from server configuration).

**Best practices:** Only one submission runs at a time; a second call while one is running returns status "busy". Runs are unattended: a missing required field or an error shown by the form stops the run and is reported.`

	QuoteServerInfoDescription = `Describe this quote bot: version, target form, input directory, limits and the available tools.

**When to use:** At the start of a session, or to find out which directory file paths are read from.`
)

// ToolDescriptions maps tool names to their descriptions.
var ToolDescriptions = map[string]string{
	"quote_parse_message":   QuoteParseMessageDescription,
	"quote_preview_message": QuotePreviewMessageDescription,
	"quote_submit_message":  QuoteSubmitMessageDescription,
	"quote_server_info":     QuoteServerInfoDescription,
}

// GetToolDescription returns the description for a tool.
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order.
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
