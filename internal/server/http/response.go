package httpserver

import (
	"github.com/google/uuid"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/search"
)

// articleResponse is the JSON serialization of one article.
type articleResponse struct {
	ID              string   `json:"id,omitempty"`
	ExternalID      string   `json:"externalId,omitempty"`
	DOI             string   `json:"doi,omitempty"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract,omitempty"`
	Authors         []string `json:"authors,omitempty"`
	Journal         string   `json:"journal,omitempty"`
	PublicationYear string   `json:"publicationYear,omitempty"`
	URL             string   `json:"url,omitempty"`
	Source          string   `json:"source"`
	QualityScore    int      `json:"qualityScore"`
}

// searchResponse is the JSON body for POST /api/v1/search.
type searchResponse struct {
	Records  []articleResponse `json:"records"`
	Total    int               `json:"total"`
	Metadata search.Metadata   `json:"metadata"`
}

// summarizeResponse is the JSON body for the summarize endpoint.
type summarizeResponse struct {
	ArticleID string `json:"articleId"`
	Summary   string `json:"summary"`
}

// categorizeResponse is the JSON body for the categorize endpoint.
type categorizeResponse struct {
	ArticleID      string   `json:"articleId"`
	PrimaryArea    string   `json:"primaryArea"`
	SecondaryAreas []string `json:"secondaryAreas,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
}

func domainArticleToResponse(a *domain.Article) articleResponse {
	resp := articleResponse{
		ExternalID:      a.ExternalID,
		DOI:             a.DOI,
		Title:           a.Title,
		Abstract:        a.Abstract,
		Authors:         a.Authors,
		Journal:         a.Journal,
		PublicationYear: a.PublicationYear,
		URL:             a.URL,
		Source:          string(a.Source),
		QualityScore:    a.QualityScore,
	}
	if a.ID != uuid.Nil {
		resp.ID = a.ID.String()
	}
	return resp
}

func searchResultToResponse(result *search.Result) searchResponse {
	records := make([]articleResponse, len(result.Articles))
	for i, a := range result.Articles {
		records[i] = domainArticleToResponse(a)
	}
	return searchResponse{
		Records:  records,
		Total:    len(records),
		Metadata: result.Metadata,
	}
}
