package prices

import "context"

// Probe issues a minimal upstream request so the health checker can tell
// whether the aggregator is reachable.
func (u *Upstream) Probe(ctx context.Context) error {
	_, err := u.Fetch(ctx, DefaultIDs[:1])
	return err
}
