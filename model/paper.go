package model

// Author is one author of a paper, as recovered by the Pre-Parser.
type Author struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Publication captures venue/date metadata the Pre-Parser recovers, when
// present in the source text.
type Publication struct {
	Venue string `json:"venue,omitempty"`
	Year  int    `json:"year,omitempty"`
	DOI   string `json:"doi,omitempty"`
}

// PreparsedPaperContext is structured metadata extracted ahead of the main
// Extractor pass, used to steer entity/relationship extraction. Optional:
// the EDC workflow proceeds with a nil context when pre-parsing is disabled
// and with whatever the Pre-Parser returns when it fails.
type PreparsedPaperContext struct {
	Title        string        `json:"title"`
	Authors      []Author      `json:"authors,omitempty"`
	Abstract     string        `json:"abstract"`
	Keywords     []string      `json:"keywords,omitempty"`
	MainFindings []string      `json:"mainFindings,omitempty"`
	Methodology  string        `json:"methodology,omitempty"`
	Results      string        `json:"results,omitempty"`
	Discussion   string        `json:"discussion,omitempty"`
	References   []string      `json:"references,omitempty"`
	Publication  Publication   `json:"publication,omitempty"`
}

// IsZero reports whether no pre-parsed context was recovered.
func (c *PreparsedPaperContext) IsZero() bool {
	return c == nil || (c.Title == "" && c.Abstract == "" && len(c.Authors) == 0)
}
