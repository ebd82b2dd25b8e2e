package europepmc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/sources"
)

const searchResponseJSON = `{
  "hitCount": 2,
  "resultList": {
    "result": [
      {
        "id": "34735427",
        "source": "MED",
        "pmid": "34735427",
        "doi": "10.1016/s0140-6736(21)02249-2",
        "title": "Efficacy of a third vaccine dose in immunocompromised adults.",
        "authorString": "Novak R, Diallo S, Kim H.",
        "journalInfo": {"journal": {"title": "The Lancet"}},
        "pubYear": "2021",
        "abstractText": "Background: Immunocompromised adults mount weaker responses to standard vaccine schedules. We assessed whether a third dose restores protective antibody titres across three cohorts."
      },
      {
        "id": "PPR412345",
        "source": "PPR",
        "title": "Preliminary observations on wastewater surveillance",
        "authorList": {"author": [{"fullName": "L. Moreau"}, {"lastName": "Zhou", "initials": "Q"}]},
        "pubYear": "2023",
        "abstractText": "N/A"
      }
    ]
  }
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewWithHTTPClient(
		Config{BaseURL: server.URL},
		sources.NewHTTPClient(sources.NewPacer(1000), sources.HTTPClientConfig{}),
	)
}

func TestClient_Search(t *testing.T) {
	t.Run("single core call returns complete records", func(t *testing.T) {
		var query url.Values
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			query = r.URL.Query()
			w.Write([]byte(searchResponseJSON))
		}))

		articles, err := client.Search(context.Background(), "vaccine immunocompromised", 10, 0)
		require.NoError(t, err)
		require.Len(t, articles, 2)

		assert.Equal(t, "core", query.Get("resultType"))
		assert.Equal(t, "json", query.Get("format"))
		assert.Equal(t, "10", query.Get("pageSize"))

		first := articles[0]
		assert.Equal(t, "34735427", first.ExternalID)
		assert.Equal(t, "10.1016/s0140-6736(21)02249-2", first.DOI)
		assert.Equal(t, "Efficacy of a third vaccine dose in immunocompromised adults", first.Title)
		assert.Equal(t, "The Lancet", first.Journal)
		assert.Equal(t, "2021", first.PublicationYear)
		assert.Equal(t, []string{"Novak R", "Diallo S", "Kim H"}, first.Authors)
		assert.Equal(t, "https://europepmc.org/article/MED/34735427", first.URL)
		assert.Equal(t, domain.SourceTypeEuropePMC, first.Source)
		assert.Contains(t, first.Abstract, "third dose")

		second := articles[1]
		assert.Equal(t, "PPR412345", second.ExternalID, "falls back to record id without a pmid")
		assert.Empty(t, second.DOI)
		assert.Empty(t, second.Abstract, "placeholder abstract should be treated as absent")
		assert.Equal(t, []string{"L. Moreau", "Zhou Q"}, second.Authors,
			"structured author list wins over authorString")
	})

	t.Run("offset maps to the containing page", func(t *testing.T) {
		var page string
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			page = r.URL.Query().Get("page")
			w.Write([]byte(`{"hitCount":0,"resultList":{"result":[]}}`))
		}))

		_, err := client.Search(context.Background(), "anything", 10, 20)
		require.NoError(t, err)
		assert.Equal(t, "3", page)
	})

	t.Run("propagates server error", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		_, err := client.Search(context.Background(), "x", 10, 0)
		require.Error(t, err)
	})
}

func TestClient_Descriptor(t *testing.T) {
	d := New(Config{}).Descriptor()

	assert.Equal(t, domain.SourceTypeEuropePMC, d.Name)
	assert.Equal(t, 2, d.Priority)
	assert.True(t, d.HasAffinity(domain.CategoryMedical))
	assert.False(t, d.HasAffinity(domain.CategoryTechnology))
}
