package domain

// UnknownTitle is used for citations whose source carries no title.
const UnknownTitle = "Unknown document"

// Citation points the reader at a document that grounded an answer.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// DedupCitations drops citations whose title was already seen, keeping first-seen order.
func DedupCitations(in []Citation) []Citation {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]Citation, 0, len(in))
	for _, c := range in {
		if c.Title == "" {
			c.Title = UnknownTitle
		}
		if _, dup := seen[c.Title]; dup {
			continue
		}
		seen[c.Title] = struct{}{}
		out = append(out, c)
	}
	return out
}
