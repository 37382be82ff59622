package gate

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// systemPrompt instructs the judge model. The verdict must come back as a
// single JSON object so the response format constraint can be enforced.
const systemPrompt = `You are a strict product matching judge. Given a user query and a numbered list of candidate product titles, decide whether any candidate is the SAME product the user is asking for.

Rules:
1. The brand must match. A different brand is never a match.
2. The condition must match. Refurbished, renewed or used items do not match a query for the plain product.
3. An accessory is not the product. A case, charger, cable, strap or screen protector for the queried product is not a match.
4. The generation or version must match. A different model year, generation number or capacity is not a match.
5. If a candidate names the same core model, extra descriptors like color, "Wireless" or "Noise Cancelling" do not prevent a match.

Respond with a single JSON object:
{"match": true|false, "candidate_id": <1-based number of the matching candidate or 0>, "reason": "<one short sentence>"}

Examples:
Query: "sony wh-1000xm4"
Candidates:
1. Sony WH-1000XM4 Wireless Noise Cancelling Headphones, Black
2. Sony WH-1000XM4 Carrying Case
Answer: {"match": true, "candidate_id": 1, "reason": "Candidate 1 is the same model; candidate 2 is only a case."}

Query: "iphone 15 pro"
Candidates:
1. Apple iPhone 14 Pro 128GB
2. iPhone 15 Pro Silicone Case
Answer: {"match": false, "candidate_id": 0, "reason": "Candidate 1 is a different generation and candidate 2 is an accessory."}`

// buildUserPrompt renders the query and numbered candidate titles. The
// judge sees the raw query text: casing and punctuation carry signal for
// the model, normalization is a cache concern.
func buildUserPrompt(q domain.Query, set domain.CandidateSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Query: %q\nCandidates:\n", q.Raw())
	for i, c := range set {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Title)
	}
	sb.WriteString("Answer:")
	return sb.String()
}
