package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"maktaba/internal/response"
	"maktaba/internal/storage/authors"
	"maktaba/internal/storage/books"
	"maktaba/internal/storage/empires"
	"maktaba/internal/storage/genres"
	"maktaba/internal/storage/regions"
	"maktaba/internal/taxonomy"
	"maktaba/internal/types"
)

func Handler(ts *taxonomy.Service, br books.Repository, ar authors.Repository,
	gr genres.Repository, rgr regions.Repository, er empires.Repository,
	rr *response.Responder) http.Handler {

	r := chi.NewRouter()

	r.Get("/genre", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		loc, err := parseLocale(q)
		if err != nil {
			rr.RespondBadRequest(w, r.Context(), err)
			return
		}

		f, err := parseFilter(q)
		if err != nil {
			rr.RespondBadRequest(w, r.Context(), err)
			return
		}

		rows, err := ts.List(r.Context(), loc, f)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if rows == nil {
			rows = make([]*types.GenreDto, 0)
		}

		rr.SendJson(w, r.Context(), rows)
	})

	r.Get("/genre/hierarchy", func(w http.ResponseWriter, r *http.Request) {
		loc, err := parseLocale(r.URL.Query())
		if err != nil {
			rr.RespondBadRequest(w, r.Context(), err)
			return
		}

		roots, err := ts.Tree(r.Context(), loc)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if roots == nil {
			roots = make([]*types.GenreTreeNode, 0)
		}

		rr.SendJson(w, r.Context(), roots)
	})

	r.Get("/genre/count", func(w http.ResponseWriter, r *http.Request) {
		total, err := ts.Count(r.Context())
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		rr.SendJson(w, r.Context(), struct {
			Total int `json:"total"`
		}{Total: total})
	})

	r.Get("/genre/{slug}", func(w http.ResponseWriter, r *http.Request) {
		loc, err := parseLocale(r.URL.Query())
		if err != nil {
			rr.RespondBadRequest(w, r.Context(), err)
			return
		}

		dto, err := ts.GetBySlug(r.Context(), chi.URLParam(r, "slug"), loc)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if dto == nil {
			rr.RespondNotFound(w, r.Context())
			return
		}

		rr.SendJson(w, r.Context(), dto)
	})

	r.Get("/genre-simple", func(w http.ResponseWriter, r *http.Request) {
		rows, err := gr.GetAllSimple(r.Context())
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if rows == nil {
			rows = make([]*types.Genre, 0)
		}

		rr.SendJson(w, r.Context(), struct {
			Genres []*types.Genre `json:"genres"`
		}{Genres: rows})
	})

	r.Get("/book", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		f, err := parseFilter(q)
		if err != nil {
			rr.RespondBadRequest(w, r.Context(), err)
			return
		}

		// A genre reference matches the genre itself or anything under it.
		var genreIds []string
		if refs := getMulti("genre", q); len(refs) > 0 {
			ids, err := ts.ResolveRefs(r.Context(), refs)
			if err != nil {
				rr.RespondAndLogError(w, r.Context(), err)
				return
			}

			genreIds, err = ts.IdsWithDescendants(r.Context(), ids)
			if err != nil {
				rr.RespondAndLogError(w, r.Context(), err)
				return
			}

			if len(genreIds) == 0 {
				rr.SendJson(w, r.Context(), struct {
					Books   []*types.Book            `json:"books"`
					Authors map[string]*types.Author `json:"authors"`
				}{Books: make([]*types.Book, 0), Authors: make(map[string]*types.Author)})
				return
			}
		}

		rows, err := br.Search(r.Context(), q.Get("search"), f, genreIds,
			getIntOrDefault("limit", q, 20), getIntOrDefault("offset", q, 0))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		var authorIds []string
		seenAuthor := make(map[string]struct{})
		for _, row := range rows {
			for _, authorId := range row.Authors {
				if _, ok := seenAuthor[authorId]; !ok {
					seenAuthor[authorId] = struct{}{}
					authorIds = append(authorIds, authorId)
				}
			}
		}

		as, err := ar.GetByIds(r.Context(), authorIds...)
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if rows == nil {
			rows = make([]*types.Book, 0)
		}

		rr.SendJson(w, r.Context(), struct {
			Books   []*types.Book            `json:"books"`
			Authors map[string]*types.Author `json:"authors"`
		}{Books: rows, Authors: as})
	})

	r.Get("/book/{id}", func(w http.ResponseWriter, r *http.Request) {
		book, err := br.GetById(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if book == nil {
			rr.RespondNotFound(w, r.Context())
			return
		}

		rr.SendJson(w, r.Context(), book)
	})

	r.Get("/author", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		rows, err := ar.Search(r.Context(), q.Get("search"), q.Get("regionId"),
			getIntOrDefault("limit", q, 10))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if rows == nil {
			rows = make([]*types.Author, 0)
		}

		rr.SendJson(w, r.Context(), struct {
			Authors []*types.Author `json:"authors"`
		}{Authors: rows})
	})

	r.Get("/region", func(w http.ResponseWriter, r *http.Request) {
		rows, err := rgr.GetAll(r.Context())
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if rows == nil {
			rows = make([]*types.Region, 0)
		}

		rr.SendJson(w, r.Context(), struct {
			Regions []*types.Region `json:"regions"`
		}{Regions: rows})
	})

	r.Get("/region/{slug}", func(w http.ResponseWriter, r *http.Request) {
		region, err := rgr.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if region == nil {
			rr.RespondNotFound(w, r.Context())
			return
		}

		rr.SendJson(w, r.Context(), region)
	})

	r.Get("/empire", func(w http.ResponseWriter, r *http.Request) {
		rows, err := er.GetAll(r.Context())
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if rows == nil {
			rows = make([]*types.Empire, 0)
		}

		rr.SendJson(w, r.Context(), struct {
			Empires []*types.Empire `json:"empires"`
		}{Empires: rows})
	})

	r.Get("/empire/{slug}", func(w http.ResponseWriter, r *http.Request) {
		empire, err := er.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			rr.RespondAndLogError(w, r.Context(), err)
			return
		}

		if empire == nil {
			rr.RespondNotFound(w, r.Context())
			return
		}

		rr.SendJson(w, r.Context(), empire)
	})

	r.Get("/opds", opdsHandler(br, ar, rr))

	r.Post("/reset-cache", func(w http.ResponseWriter, r *http.Request) {
		ts.ResetCache()

		rr.SendJson(w, r.Context(), struct {
			Status string `json:"status"`
		}{Status: "ok"})
	})

	return r
}
