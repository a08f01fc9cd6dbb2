package sync

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"maktaba/internal/slug"
	"maktaba/internal/storage/syncfails"
	"maktaba/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	tableRegions      = "regions"
	tableEmpires      = "empires"
	tableGenres       = "genres"
	tableSimpleGenres = "simple-genres"
	tableAuthors      = "authors"
	tableBooks        = "books"
)

// HTTPSource reads the upstream tables as paged JSON: each page is
// {"records": [{"id": …, "fields": {…}}, …], "offset": "…"} and an empty
// offset ends the table.
type HTTPSource struct {
	BaseURL *url.URL
	Token   string
	Client  *http.Client
	Logger  *slog.Logger
	Errors  ErrorHandler
}

type wireRecord struct {
	Id     string              `json:"id"`
	Fields jsoniter.RawMessage `json:"fields"`
}

type wirePage struct {
	Records []wireRecord `json:"records"`
	Offset  string       `json:"offset"`
}

type wireName struct {
	Locale string `json:"locale"`
	Text   string `json:"text"`
}

func intoEntries(names []wireName) []types.LocalizedText {
	ret := make([]types.LocalizedText, 0, len(names))
	for _, n := range names {
		ret = append(ret, types.LocalizedText{Locale: n.Locale, Text: n.Text})
	}

	return ret
}

// slugOrMake keeps upstream slugs when present; renamed records without
// one get a slug derived from the transliteration.
func slugOrMake(explicit, transliteration string) string {
	if explicit != "" {
		return explicit
	}

	return slug.Make(transliteration)
}

func (h *HTTPSource) Fetch(ctx context.Context, consumer Consumer) error {
	err := h.fetchTable(ctx, tableRegions, func(ctx context.Context, records []wireRecord) error {
		rows, err := decodeRegions(records)
		if err != nil {
			return err
		}

		return consumer.ConsumeRegions(ctx, rows)
	})
	if err != nil {
		return err
	}

	err = h.fetchTable(ctx, tableEmpires, func(ctx context.Context, records []wireRecord) error {
		rows, err := decodeEmpires(records)
		if err != nil {
			return err
		}

		return consumer.ConsumeEmpires(ctx, rows)
	})
	if err != nil {
		return err
	}

	var advanced []*types.AdvancedGenre
	err = h.fetchTable(ctx, tableGenres, func(_ context.Context, records []wireRecord) error {
		rows, err := decodeAdvancedGenres(records)
		if err != nil {
			return err
		}

		// Advanced genres are delivered in one consumer call once every
		// page is in, so parent references within the table always resolve.
		advanced = append(advanced, rows...)
		return nil
	})
	if err != nil {
		return err
	}

	var simple []*types.Genre
	err = h.fetchTable(ctx, tableSimpleGenres, func(_ context.Context, records []wireRecord) error {
		rows, err := decodeSimpleGenres(records)
		if err != nil {
			return err
		}

		simple = append(simple, rows...)
		return nil
	})
	if err != nil {
		return err
	}

	if err := consumer.ConsumeGenres(ctx, advanced, simple); err != nil {
		return fmt.Errorf("consuming genres: %w", err)
	}

	err = h.fetchTable(ctx, tableAuthors, func(ctx context.Context, records []wireRecord) error {
		rows, err := decodeAuthors(records)
		if err != nil {
			return err
		}

		return consumer.ConsumeAuthors(ctx, rows)
	})
	if err != nil {
		return err
	}

	return h.fetchTable(ctx, tableBooks, func(ctx context.Context, records []wireRecord) error {
		rows, err := decodeBooks(records)
		if err != nil {
			return err
		}

		return consumer.ConsumeBooks(ctx, rows, func(id string) (*types.Author, error) {
			return h.fetchAuthor(ctx, id)
		})
	})
}

// Replay re-consumes batches a previous run recorded as failed, deleting
// each record once its batch goes through. Batches recorded at or after
// notAfter are left for their own run to deal with.
func (h *HTTPSource) Replay(ctx context.Context, fails syncfails.Repository,
	consumer Consumer, notAfter *time.Time) error {

	rows, err := fails.GetFails(ctx, notAfter)
	if err != nil {
		return fmt.Errorf("loading recorded fails: %w", err)
	}

	for _, row := range rows {
		var records []wireRecord
		if err := json.UnmarshalFromString(row.Payload, &records); err != nil {
			h.Logger.Warn("Skipping unreadable recorded batch of " + row.Entity + ": " + err.Error())
			continue
		}

		if err := h.consumeBatch(ctx, row.Entity, records, consumer); err != nil {
			h.Logger.Warn("Recorded batch of " + row.Entity + " failed again: " + err.Error())
			continue
		}

		if err := fails.DeleteById(ctx, row.Id); err != nil {
			return fmt.Errorf("deleting replayed fail: %w", err)
		}
	}

	return nil
}

func (h *HTTPSource) consumeBatch(ctx context.Context, table string, records []wireRecord, consumer Consumer) error {
	switch table {
	case tableRegions:
		rows, err := decodeRegions(records)
		if err != nil {
			return err
		}
		return consumer.ConsumeRegions(ctx, rows)
	case tableEmpires:
		rows, err := decodeEmpires(records)
		if err != nil {
			return err
		}
		return consumer.ConsumeEmpires(ctx, rows)
	case tableGenres:
		rows, err := decodeAdvancedGenres(records)
		if err != nil {
			return err
		}
		return consumer.ConsumeGenres(ctx, rows, nil)
	case tableSimpleGenres:
		rows, err := decodeSimpleGenres(records)
		if err != nil {
			return err
		}
		return consumer.ConsumeGenres(ctx, nil, rows)
	case tableAuthors:
		rows, err := decodeAuthors(records)
		if err != nil {
			return err
		}
		return consumer.ConsumeAuthors(ctx, rows)
	case tableBooks:
		rows, err := decodeBooks(records)
		if err != nil {
			return err
		}
		return consumer.ConsumeBooks(ctx, rows, func(id string) (*types.Author, error) {
			return h.fetchAuthor(ctx, id)
		})
	}

	return fmt.Errorf("unknown entity %q in recorded fail", table)
}

func (h *HTTPSource) fetchTable(ctx context.Context, table string,
	consume func(ctx context.Context, records []wireRecord) error) error {

	h.Logger.Debug("Begin processing table " + table)

	offset := ""
	for {
		page, err := h.fetchPage(ctx, table, offset)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", table, err)
		}

		if len(page.Records) > 0 {
			if err := consume(ctx, page.Records); err != nil {
				payload, _ := json.MarshalToString(page.Records)
				if herr := h.Errors.Handle(ctx, table, payload, err); herr != nil {
					return herr
				}

				h.Logger.Warn("Recorded failed batch of " + table + ": " + err.Error())
			}
		}

		if page.Offset == "" {
			return nil
		}

		offset = page.Offset
	}
}

func (h *HTTPSource) fetchPage(ctx context.Context, table, offset string) (*wirePage, error) {
	u := h.BaseURL.JoinPath(table)
	if offset != "" {
		q := u.Query()
		q.Set("offset", offset)
		u.RawQuery = q.Encode()
	}

	bs, err := h.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var page wirePage
	if err := json.Unmarshal(bs, &page); err != nil {
		return nil, fmt.Errorf("unmarshalling page: %w", err)
	}

	return &page, nil
}

func (h *HTTPSource) fetchAuthor(ctx context.Context, id string) (*types.Author, error) {
	bs, err := h.get(ctx, h.BaseURL.JoinPath(tableAuthors, id))
	if err != nil {
		return nil, fmt.Errorf("fetching author %s: %w", id, err)
	}

	var record wireRecord
	if err := json.Unmarshal(bs, &record); err != nil {
		return nil, fmt.Errorf("unmarshalling author %s: %w", id, err)
	}

	rows, err := decodeAuthors([]wireRecord{record})
	if err != nil {
		return nil, err
	}

	return rows[0], nil
}

func (h *HTTPSource) get(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	res, err := h.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s for %s", res.Status, u.Path)
	}

	return io.ReadAll(res.Body)
}

func decodeRegions(records []wireRecord) ([]*types.Region, error) {
	type fields struct {
		Name            []wireName `json:"name"`
		Transliteration string     `json:"transliteration"`
		Slug            string     `json:"slug"`
	}

	ret := make([]*types.Region, 0, len(records))
	for _, record := range records {
		var f fields
		if err := json.Unmarshal(record.Fields, &f); err != nil {
			return nil, fmt.Errorf("decoding region %s: %w", record.Id, err)
		}

		ret = append(ret, &types.Region{
			Id:              record.Id,
			Slug:            slugOrMake(f.Slug, f.Transliteration),
			Transliteration: f.Transliteration,
			NameEntries:     intoEntries(f.Name),
		})
	}

	return ret, nil
}

func decodeEmpires(records []wireRecord) ([]*types.Empire, error) {
	type fields struct {
		Name            []wireName `json:"name"`
		Transliteration string     `json:"transliteration"`
		Slug            string     `json:"slug"`
		StartYear       uint16     `json:"start_year"`
		EndYear         uint16     `json:"end_year"`
	}

	ret := make([]*types.Empire, 0, len(records))
	for _, record := range records {
		var f fields
		if err := json.Unmarshal(record.Fields, &f); err != nil {
			return nil, fmt.Errorf("decoding empire %s: %w", record.Id, err)
		}

		ret = append(ret, &types.Empire{
			Id:              record.Id,
			Slug:            slugOrMake(f.Slug, f.Transliteration),
			Transliteration: f.Transliteration,
			NameEntries:     intoEntries(f.Name),
			StartYear:       f.StartYear,
			EndYear:         f.EndYear,
		})
	}

	return ret, nil
}

func decodeAdvancedGenres(records []wireRecord) ([]*types.AdvancedGenre, error) {
	type fields struct {
		Name            []wireName `json:"name"`
		Transliteration string     `json:"transliteration"`
		Slug            string     `json:"slug"`
		ParentGenreId   string     `json:"parent_genre_id"`
	}

	ret := make([]*types.AdvancedGenre, 0, len(records))
	for _, record := range records {
		var f fields
		if err := json.Unmarshal(record.Fields, &f); err != nil {
			return nil, fmt.Errorf("decoding advanced genre %s: %w", record.Id, err)
		}

		ret = append(ret, &types.AdvancedGenre{
			Id:              record.Id,
			Slug:            slugOrMake(f.Slug, f.Transliteration),
			ParentId:        f.ParentGenreId,
			Transliteration: f.Transliteration,
			NameEntries:     intoEntries(f.Name),
		})
	}

	return ret, nil
}

func decodeSimpleGenres(records []wireRecord) ([]*types.Genre, error) {
	type fields struct {
		Name            []wireName `json:"name"`
		Transliteration string     `json:"transliteration"`
		Slug            string     `json:"slug"`
	}

	ret := make([]*types.Genre, 0, len(records))
	for _, record := range records {
		var f fields
		if err := json.Unmarshal(record.Fields, &f); err != nil {
			return nil, fmt.Errorf("decoding simple genre %s: %w", record.Id, err)
		}

		ret = append(ret, &types.Genre{
			Id:              record.Id,
			Slug:            slugOrMake(f.Slug, f.Transliteration),
			Transliteration: f.Transliteration,
			NameEntries:     intoEntries(f.Name),
		})
	}

	return ret, nil
}

func decodeAuthors(records []wireRecord) ([]*types.Author, error) {
	type fields struct {
		Name            []wireName `json:"name"`
		Transliteration string     `json:"transliteration"`
		Slug            string     `json:"slug"`
		Year            uint16     `json:"year"`
		RegionIds       []string   `json:"region_ids"`
	}

	ret := make([]*types.Author, 0, len(records))
	for _, record := range records {
		var f fields
		if err := json.Unmarshal(record.Fields, &f); err != nil {
			return nil, fmt.Errorf("decoding author %s: %w", record.Id, err)
		}

		ret = append(ret, &types.Author{
			Id:              record.Id,
			Slug:            slugOrMake(f.Slug, f.Transliteration),
			Transliteration: f.Transliteration,
			NameEntries:     intoEntries(f.Name),
			Year:            f.Year,
			Regions:         f.RegionIds,
		})
	}

	return ret, nil
}

func decodeBooks(records []wireRecord) ([]*types.Book, error) {
	type fields struct {
		Name            []wireName `json:"name"`
		Transliteration string     `json:"transliteration"`
		Slug            string     `json:"slug"`
		AuthorIds       []string   `json:"author_ids"`
		GenreIds        []string   `json:"genre_ids"`
	}

	ret := make([]*types.Book, 0, len(records))
	for _, record := range records {
		var f fields
		if err := json.Unmarshal(record.Fields, &f); err != nil {
			return nil, fmt.Errorf("decoding book %s: %w", record.Id, err)
		}

		ret = append(ret, &types.Book{
			Id:              record.Id,
			Slug:            slugOrMake(f.Slug, f.Transliteration),
			Transliteration: f.Transliteration,
			NameEntries:     intoEntries(f.Name),
			Authors:         f.AuthorIds,
			Genres:          f.GenreIds,
		})
	}

	return ret, nil
}
