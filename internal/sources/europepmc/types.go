// Package europepmc provides a client for the Europe PMC REST API.
//
// Europe PMC aggregates abstracts and full text across MEDLINE, PMC
// and preprint servers. A single search call returns complete records
// when resultType=core is requested, so no second fetch phase is
// needed. The API is public and requires no key.
//
// API Documentation: https://europepmc.org/RestfulWebService
package europepmc

// SearchResponse represents the response from the search endpoint.
type SearchResponse struct {
	// HitCount is the total number of records matching the query.
	HitCount int `json:"hitCount"`

	ResultList ResultList `json:"resultList"`
}

// ResultList wraps the returned records.
type ResultList struct {
	Results []Result `json:"result"`
}

// Result represents a single record with resultType=core.
type Result struct {
	// ID is the record identifier within its source collection.
	ID string `json:"id"`

	// Source is the collection the record came from (MED, PMC, PPR, ...).
	Source string `json:"source"`

	PMID  string `json:"pmid,omitempty"`
	DOI   string `json:"doi,omitempty"`
	Title string `json:"title"`

	// AuthorString is the citation-style author list ("Smith J, Doe A.").
	AuthorString string `json:"authorString,omitempty"`

	// AuthorList carries structured author entries when available.
	AuthorList *AuthorList `json:"authorList,omitempty"`

	JournalInfo *JournalInfo `json:"journalInfo,omitempty"`

	PubYear      string `json:"pubYear,omitempty"`
	AbstractText string `json:"abstractText,omitempty"`
}

// AuthorList contains structured author entries.
type AuthorList struct {
	Authors []Author `json:"author"`
}

// Author represents a structured author entry.
type Author struct {
	FullName string `json:"fullName,omitempty"`
	LastName string `json:"lastName,omitempty"`
	Initials string `json:"initials,omitempty"`
}

// JournalInfo carries the journal block of a core record.
type JournalInfo struct {
	Journal Journal `json:"journal"`
}

// Journal identifies the container publication.
type Journal struct {
	Title string `json:"title,omitempty"`
}
