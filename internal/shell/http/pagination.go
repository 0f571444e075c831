package http

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// NavigationLinks holds the page navigation URLs of a list response.
// Links that do not apply (prev on the first page, next on the last) stay
// empty and are omitted from the JSON.
type NavigationLinks struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
	Next  string `json:"next,omitempty"`
	Prev  string `json:"prev,omitempty"`
}

// Meta carries the total number of records matching the query, across all
// pages.
type Meta struct {
	Count int `json:"count"`
}

// PaginatedResponse is the envelope of every list endpoint.
type PaginatedResponse struct {
	Meta  Meta            `json:"meta"`
	Links NavigationLinks `json:"links"`
	Data  interface{}     `json:"data"`
}

// parsePaginationParams reads offset and limit from the query string.
// Invalid or missing values fall back to the defaults, and limit is capped
// at maxLimit.
func parsePaginationParams(u *url.URL) (offset, limit int) {
	offset = 0
	limit = defaultLimit

	if raw := u.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	if raw := u.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return offset, limit
}

// buildNavigationLinks computes the page links for the given window. All
// links are empty when there are no results.
func buildNavigationLinks(u *url.URL, offset, limit, total int) NavigationLinks {
	if total == 0 {
		return NavigationLinks{}
	}

	links := NavigationLinks{
		First: pageURL(u, 0, limit),
		Last:  pageURL(u, calculateOffsetOfLastPage(total, limit), limit),
	}

	if offset+limit < total {
		links.Next = pageURL(u, offset+limit, limit)
	}

	if offset > 0 {
		prevOffset := offset - limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		links.Prev = pageURL(u, prevOffset, limit)
	}

	return links
}

// calculateOffsetOfLastPage returns the offset of the final page for the
// given total and page size.
func calculateOffsetOfLastPage(total, limit int) int {
	if total <= limit {
		return 0
	}

	lastPage := (total - 1) / limit
	return lastPage * limit
}

// buildPaginatedResponse assembles the list envelope around the data page.
func buildPaginatedResponse(u *url.URL, offset, limit, total int, data interface{}) PaginatedResponse {
	return PaginatedResponse{
		Meta:  Meta{Count: total},
		Links: buildNavigationLinks(u, offset, limit, total),
		Data:  data,
	}
}

func pageURL(u *url.URL, offset, limit int) string {
	q := u.Query()
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return fmt.Sprintf("%s?%s", u.Path, q.Encode())
}
