package server

import (
	"encoding/xml"
	"net/http"

	"github.com/opds-community/libopds2-go/opds1"

	"maktaba/internal/locale"
	"maktaba/internal/response"
	"maktaba/internal/storage/authors"
	"maktaba/internal/storage/books"
)

const linkTypeCatalog = "application/atom+xml;profile=opds-catalog"

// opdsHandler renders the catalog as an OPDS 1 acquisition feed so generic
// reading clients can browse the library.
func opdsHandler(br books.Repository, ar authors.Repository, rr *response.Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		rows, err := br.Search(r.Context(), q.Get("search"), books.Filter{}, nil,
			getIntOrDefault("limit", q, 50), getIntOrDefault("offset", q, 0))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		var authorIds []string
		seen := make(map[string]struct{})
		for _, book := range rows {
			for _, authorId := range book.Authors {
				if _, ok := seen[authorId]; !ok {
					seen[authorId] = struct{}{}
					authorIds = append(authorIds, authorId)
				}
			}
		}

		as, err := ar.GetByIds(r.Context(), authorIds...)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		feed := opds1.Feed{
			Title: "Maktaba catalog",
			Links: []opds1.Link{{
				Rel:      "self",
				TypeLink: linkTypeCatalog,
				Href:     "/api/opds",
			}},
		}

		for _, book := range rows {
			entry := opds1.Entry{
				ID:       "tag:book:" + book.Id,
				Title:    locale.Primary(book.NameEntries, book.Transliteration, locale.English),
				Language: locale.Arabic,
				Links: []opds1.Link{{
					Rel:      "alternate",
					TypeLink: "application/json",
					Href:     "/api/book/" + book.Id,
				}},
			}

			for _, authorId := range book.Authors {
				author, ok := as[authorId]
				if !ok {
					continue
				}

				entry.Author = append(entry.Author, opds1.Author{
					Name: locale.Primary(author.NameEntries, author.Transliteration, locale.English),
					URI:  "/api/author?search=" + author.Slug,
				})
			}

			for _, genreId := range book.Genres {
				entry.Category = append(entry.Category, opds1.Category{Term: genreId})
			}

			feed.Entries = append(feed.Entries, entry)
		}

		bs, err := xml.Marshal(feed)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		w.Header().Set("Content-Type", linkTypeCatalog+"; charset=utf-8")
		_, _ = w.Write([]byte(xml.Header))
		_, _ = w.Write(bs)
	}
}
