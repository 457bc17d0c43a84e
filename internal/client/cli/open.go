package cli

import "context"

// runOpen рендерит экран path с учетом правил стартовой навигации
func (c *Cli) runOpen(ctx context.Context, path string) error {
	c.app.Router.History().Replace(path)
	return c.app.Start(ctx)
}
