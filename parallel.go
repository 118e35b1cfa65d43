package golokal

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// fetchNamespaces fetches every namespace of locale concurrently. A failure
// does not cancel the others, so each successful namespace is kept. It
// returns the sorted namespaces whose content changed and the first error.
func (c *Client) fetchNamespaces(ctx context.Context, locale string, namespaces []string) ([]string, error) {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		changed []string
	)

	for _, ns := range namespaces {
		g.Go(func() error {
			res, err := c.fetchShared(ctx, locale, ns)
			if err != nil {
				c.logger.Debug().Err(err).Str("locale", locale).Str("namespace", ns).Msg("namespace fetch failed")
				return err
			}
			if res.changed {
				mu.Lock()
				changed = append(changed, ns)
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	sort.Strings(changed)
	return changed, err
}
