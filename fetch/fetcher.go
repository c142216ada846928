package fetch

import (
	"context"

	"github.com/poiesic/newswire/core"
)

// Fetcher returns candidate items for a keyword. URLs present in known,
// compared in their normalized form, are left out. Implementations may
// return fewer items than the source offers; they never return an item
// without a title or with an invalid URL.
type Fetcher interface {
	Fetch(ctx context.Context, keyword string, known map[string]struct{}) ([]core.RawItem, error)
}
