// Package marketplace contains the provider adapters behind the
// integration.MarketplaceProvider port: Bling ERP, Mercado Livre, Shopee and
// Amazon. Each adapter encapsulates one provider's OAuth flavor and API
// envelope and normalizes everything to the domain types.
package marketplace

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/commercehub/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed provider response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// defaultPageSize is used when a listing request carries no limit
const defaultPageSize = 50

// readBody drains a provider response with a size cap
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrProviderInvalidResponse, err)
	}
	return body, nil
}

// normalizeScopes turns a provider scope string (space or comma separated)
// into a sorted, deduplicated slice
func normalizeScopes(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	scopes := make([]string, 0, len(fields))
	for _, s := range fields {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	return scopes
}

// hasNextPage derives pagination from the provider-reported total count
func hasNextPage(page integration.ListPage, total int64) bool {
	return int64(page.Offset+page.Limit) < total
}

// normalizePage applies the default limit
func normalizePage(page integration.ListPage) integration.ListPage {
	if page.Limit <= 0 {
		page.Limit = defaultPageSize
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page
}
