package service

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/quizbeat/api/internal/client"
	"github.com/quizbeat/api/internal/model"
)

// CatalogAPI is the slice of the catalog client the resolver needs.
type CatalogAPI interface {
	Search(ctx context.Context, query string, opts client.SearchOptions) ([]client.SearchResult, error)
	GetMaster(ctx context.Context, id int) (*client.Master, error)
	GetRelease(ctx context.Context, id int) (*client.Release, error)
	MasterURL(id int) string
}

const (
	minYear = 1900

	// minMatchScore is the acceptance threshold for a catalog
	// candidate; anything below falls back to streaming metadata.
	minMatchScore = 80
)

// promoKeywords mark pressings whose date says nothing about the
// original release.
var promoKeywords = []string{"promo", "sampler", "test pressing", "advance", "acetate"}

var (
	parensExpr     = regexp.MustCompile(`\([^)]*\)`)
	bracketsExpr   = regexp.MustCompile(`\[[^\]]*\]`)
	disallowedExpr = regexp.MustCompile(`[^A-Za-z0-9 _-]`)
	spacesExpr     = regexp.MustCompile(`\s+`)
)

// Resolver decides a song's original release year: catalog first, the
// streaming service's own album date as fallback.
type Resolver struct {
	catalog CatalogAPI
}

func NewResolver(catalog CatalogAPI) *Resolver {
	return &Resolver{catalog: catalog}
}

// normalizeName strips parenthesized and bracketed substrings, drops
// characters outside [A-Za-z0-9 _-], collapses whitespace and
// lowercases. Normalizing twice is a no-op.
func normalizeName(s string) string {
	s = parensExpr.ReplaceAllString(s, "")
	s = bracketsExpr.ReplaceAllString(s, "")
	s = disallowedExpr.ReplaceAllString(s, "")
	s = spacesExpr.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// scoreCandidate rates a search candidate against the normalized
// artist and title. Candidates whose title does not split into
// "Artist - Title" score zero.
func scoreCandidate(c client.SearchResult, normArtist, normTitle string, currentYear int) int {
	parts := strings.SplitN(c.Title, " - ", 2)
	if len(parts) != 2 {
		return 0
	}
	a := normalizeName(parts[0])
	t := normalizeName(parts[1])

	score := 0
	switch {
	case a == normArtist:
		score += 40
	case strings.Contains(a, normArtist):
		score += 20
	}
	switch {
	case t == normTitle:
		score += 40
	case strings.Contains(t, normTitle):
		score += 20
	}
	if y, err := strconv.Atoi(c.Year); err == nil && y >= minYear && y <= currentYear {
		score += 20
	}
	return score
}

// Resolve never fails: any error on the catalog path is swallowed and
// the song falls back to its streaming metadata, with Error recording
// the failure when one was caught.
func (r *Resolver) Resolve(ctx context.Context, song model.Song) model.ProcessedSong {
	processed, err := r.fromCatalog(ctx, song)
	if err != nil {
		log.Printf("[Resolver] %s - %s: catalog lookup failed: %v", song.Artist, song.Title, err)
		fb := r.FallbackToStreaming(song)
		fb.Error = err.Error()
		return fb
	}
	if processed == nil {
		return r.FallbackToStreaming(song)
	}
	return *processed
}

// fromCatalog runs the catalog pipeline: search, score, master, main
// release, validate. A nil song with nil error means "no trusted
// match" and the caller falls back silently.
func (r *Resolver) fromCatalog(ctx context.Context, song model.Song) (*model.ProcessedSong, error) {
	normArtist := normalizeName(song.Artist)
	normTitle := normalizeName(song.Title)
	currentYear := time.Now().Year()

	results, err := r.catalog.Search(ctx, normArtist+" "+normTitle, client.SearchOptions{
		Type:      "master",
		PerPage:   10,
		Sort:      "year",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		results, err = r.catalog.Search(ctx, `artist:"`+normArtist+`"`, client.SearchOptions{
			Type:      "master",
			PerPage:   20,
			Sort:      "year",
			SortOrder: "asc",
		})
		if err != nil {
			return nil, err
		}
	}
	if len(results) == 0 {
		return nil, nil
	}

	// Results arrive sorted ascending by year, so on equal scores the
	// first seen wins and the earliest release beats any re-release.
	best := results[0]
	bestScore := scoreCandidate(best, normArtist, normTitle, currentYear)
	for _, c := range results[1:] {
		if s := scoreCandidate(c, normArtist, normTitle, currentYear); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < minMatchScore {
		return nil, nil
	}

	master, err := r.catalog.GetMaster(ctx, best.ID)
	if err != nil {
		return nil, err
	}
	if master.MainReleaseID == 0 {
		return nil, nil
	}

	release, err := r.catalog.GetRelease(ctx, master.MainReleaseID)
	if err != nil {
		return nil, err
	}
	if isPromoRelease(release) {
		return nil, nil
	}

	year, month, day := splitReleaseDate(release.Released)
	if year == model.NotAvailable && master.Year > 0 {
		year = strconv.Itoa(master.Year)
	}
	if year == model.NotAvailable || !validYear(year, currentYear) {
		return nil, nil
	}

	return &model.ProcessedSong{
		Song:         song,
		ReleaseYear:  year,
		ReleaseMonth: month,
		ReleaseDay:   day,
		Source:       model.SourceCatalog,
		SourceURL:    r.catalog.MasterURL(master.ID),
	}, nil
}

// FallbackToStreaming builds a ProcessedSong from the streaming
// service's own album date. Depends only on the song, so calling it
// twice yields equal results.
func (r *Resolver) FallbackToStreaming(song model.Song) model.ProcessedSong {
	year, month, day := splitReleaseDate(song.CurrentReleaseDate)
	if !validYear(year, time.Now().Year()) {
		year = model.NotAvailable
	}
	return model.ProcessedSong{
		Song:         song,
		ReleaseYear:  year,
		ReleaseMonth: month,
		ReleaseDay:   day,
		Source:       model.SourceStreaming,
		SourceURL:    song.SpotifyURL,
	}
}

func isPromoRelease(release *client.Release) bool {
	if len(release.Formats) == 0 {
		return false
	}
	for _, d := range release.Formats[0].Descriptions {
		lower := strings.ToLower(d)
		for _, kw := range promoKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// splitReleaseDate breaks an ISO-like date ("YYYY", "YYYY-MM" or
// "YYYY-MM-DD", possibly partial) into year, month name and day.
func splitReleaseDate(date string) (year, month, day string) {
	year, month, day = model.NotAvailable, model.NotAvailable, model.NotAvailable

	parts := strings.Split(strings.TrimSpace(date), "-")
	if len(parts) > 0 && len(parts[0]) == 4 {
		if _, err := strconv.Atoi(parts[0]); err == nil {
			year = parts[0]
		}
	}
	if len(parts) > 1 {
		if m, err := strconv.Atoi(parts[1]); err == nil {
			month = model.MonthName(m)
		}
	}
	if len(parts) > 2 {
		if d, err := strconv.Atoi(parts[2]); err == nil && d >= 1 && d <= 31 {
			day = strconv.Itoa(d)
		}
	}
	return year, month, day
}

func validYear(year string, currentYear int) bool {
	if year == model.NotAvailable {
		return true
	}
	y, err := strconv.Atoi(year)
	return err == nil && y >= minYear && y <= currentYear
}
