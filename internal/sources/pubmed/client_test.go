package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/article-search-service/internal/domain"
	"github.com/helixir/article-search-service/internal/sources"
)

const esearchResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<eSearchResult>
  <Count>2</Count>
  <RetMax>2</RetMax>
  <RetStart>0</RetStart>
  <IdList>
    <Id>36000001</Id>
    <Id>36000002</Id>
  </IdList>
</eSearchResult>`

const esearchEmptyResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<eSearchResult>
  <Count>0</Count>
  <RetMax>0</RetMax>
  <RetStart>0</RetStart>
  <IdList></IdList>
  <ErrorList>
    <PhraseNotFound>zzzznosuchphrase</PhraseNotFound>
  </ErrorList>
</eSearchResult>`

const efetchResponseXML = `<?xml version="1.0" encoding="UTF-8"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">36000001</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <Volume>12</Volume>
            <Issue>3</Issue>
            <PubDate>
              <Year>2023</Year>
              <Month>Jun</Month>
            </PubDate>
          </JournalIssue>
          <Title>Nature Medicine</Title>
        </Journal>
        <ArticleTitle>CRISPR-based therapies for sickle cell disease</ArticleTitle>
        <ELocationID EIdType="doi" ValidYN="Y">10.1038/s41591-023-00001</ELocationID>
        <Abstract>
          <AbstractText Label="BACKGROUND">Gene editing approaches have matured rapidly over the last decade and now reach clinical practice.</AbstractText>
          <AbstractText Label="RESULTS">Durable fetal hemoglobin induction was observed in all treated patients over two years of follow up.</AbstractText>
        </Abstract>
        <AuthorList CompleteYN="Y">
          <Author ValidYN="Y">
            <LastName>Chen</LastName>
            <ForeName>Wei</ForeName>
          </Author>
          <Author ValidYN="Y">
            <CollectiveName>CRISPR Therapeutics Consortium</CollectiveName>
          </Author>
          <Author ValidYN="N">
            <LastName>Erratum</LastName>
          </Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">36000001</ArticleId>
        <ArticleId IdType="doi">10.1038/s41591-023-00001</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">36000002</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate>
              <MedlineDate>2022 Jan-Feb</MedlineDate>
            </PubDate>
          </JournalIssue>
          <Title>Blood Advances</Title>
        </Journal>
        <ArticleTitle>Hemoglobinopathies: a short note</ArticleTitle>
        <Abstract>
          <AbstractText>N/A</AbstractText>
        </Abstract>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">36000002</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

// newTestClient points a client at a stub E-utilities server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewWithHTTPClient(
		Config{BaseURL: server.URL},
		sources.NewHTTPClient(sources.NewPacer(1000), sources.HTTPClientConfig{}),
	)
	return client, server
}

func TestClient_Search(t *testing.T) {
	t.Run("two phase search returns converted articles", func(t *testing.T) {
		var esearchQuery, efetchIDs string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/esearch.fcgi":
				esearchQuery = r.URL.Query().Get("term")
				assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
				assert.Equal(t, "5", r.URL.Query().Get("retmax"))
				w.Write([]byte(esearchResponseXML))
			case "/efetch.fcgi":
				efetchIDs = r.URL.Query().Get("id")
				assert.Equal(t, "abstract", r.URL.Query().Get("rettype"))
				w.Write([]byte(efetchResponseXML))
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))

		articles, err := client.Search(context.Background(), "sickle cell gene editing", 5, 0)
		require.NoError(t, err)
		require.Len(t, articles, 2)

		assert.Equal(t, "sickle cell gene editing", esearchQuery)
		assert.Equal(t, "36000001,36000002", efetchIDs)

		first := articles[0]
		assert.Equal(t, "36000001", first.ExternalID)
		assert.Equal(t, "10.1038/s41591-023-00001", first.DOI)
		assert.Equal(t, "CRISPR-based therapies for sickle cell disease", first.Title)
		assert.Equal(t, "Nature Medicine", first.Journal)
		assert.Equal(t, "2023", first.PublicationYear)
		assert.Equal(t, domain.SourceTypePubMed, first.Source)
		assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/36000001/", first.URL)
		assert.Contains(t, first.Abstract, "BACKGROUND: Gene editing")
		assert.Equal(t, []string{"Wei Chen", "CRISPR Therapeutics Consortium"}, first.Authors)

		second := articles[1]
		assert.Empty(t, second.DOI)
		assert.Empty(t, second.Abstract, "placeholder abstract should be treated as absent")
		assert.Equal(t, "2022", second.PublicationYear)
	})

	t.Run("phrase not found yields empty result not error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(esearchEmptyResponseXML))
		}))

		articles, err := client.Search(context.Background(), "zzzznosuchphrase", 5, 0)
		require.NoError(t, err)
		assert.Empty(t, articles)
	})

	t.Run("propagates server error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("bad term"))
		}))

		_, err := client.Search(context.Background(), "x", 5, 0)
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("offset is forwarded as retstart", func(t *testing.T) {
		var retstart string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/esearch.fcgi" {
				retstart = r.URL.Query().Get("retstart")
			}
			w.Write([]byte(esearchEmptyResponseXML))
		}))

		_, err := client.Search(context.Background(), "anything", 5, 10)
		require.NoError(t, err)
		assert.Equal(t, "10", retstart)
	})
}

func TestClient_Descriptor(t *testing.T) {
	client := New(Config{})
	d := client.Descriptor()

	assert.Equal(t, domain.SourceTypePubMed, d.Name)
	assert.Equal(t, DefaultCallsPerSecond, d.CallsPerSecond)
	assert.Equal(t, 1, d.Priority)
	assert.True(t, d.HasAffinity(domain.CategoryMedical))
	assert.True(t, d.HasAffinity(domain.CategoryBiology))
}

func TestExtractPublicationYear(t *testing.T) {
	t.Run("prefers ArticleDate", func(t *testing.T) {
		rec := MedlineRecord{
			ArticleDate: []ArticleDate{{DateType: "Electronic", Year: "2024"}},
			Journal: Journal{JournalIssue: JournalIssue{
				PubDate: PubDate{Year: "2023"},
			}},
		}
		assert.Equal(t, "2024", extractPublicationYear(rec))
	})

	t.Run("falls back to MedlineDate", func(t *testing.T) {
		rec := MedlineRecord{
			Journal: Journal{JournalIssue: JournalIssue{
				PubDate: PubDate{MedlineDate: "2020 Spring"},
			}},
		}
		assert.Equal(t, "2020", extractPublicationYear(rec))
	})

	t.Run("empty when no date present", func(t *testing.T) {
		assert.Empty(t, extractPublicationYear(MedlineRecord{}))
	})
}
