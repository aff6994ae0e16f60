package publish

import (
	"context"
	"fmt"
)

// Setup validates that the environment can actually publish: git
// send-email must be installed and the repository must have an identity
// configured. Errors name the remedy.
func (p *Publisher) Setup(ctx context.Context) error {
	if _, err := p.Repo.Runner().Run(ctx, "send-email", "--dump-aliases"); err != nil {
		return fmt.Errorf("git send-email is not usable (install git-email): %w", err)
	}
	if _, err := p.Repo.Var(ctx, "GIT_AUTHOR_IDENT"); err != nil {
		return fmt.Errorf("no git identity configured (set user.name and user.email): %w", err)
	}
	return nil
}
