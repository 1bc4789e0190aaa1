package session

import (
	"context"

	"github.com/dmitrijs2005/keepsearch/internal/client/models"
)

// Prompter asks the user for a credential. The core never reads keystrokes
// itself.
//
// hasKeyFileConfigured tells the prompter whether the database is set up
// with a key file. Return an error matching common.ErrCancelled when the user
// dismisses the prompt.
type Prompter interface {
	RequestCredential(ctx context.Context, hasKeyFileConfigured bool) (models.Credential, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, hasKeyFileConfigured bool) (models.Credential, error)

func (f PrompterFunc) RequestCredential(ctx context.Context, hasKeyFileConfigured bool) (models.Credential, error) {
	return f(ctx, hasKeyFileConfigured)
}

// WindowRaiser brings the prompt window to the front. Best effort: errors are
// logged and otherwise ignored.
type WindowRaiser interface {
	BringToFront(ctx context.Context, hint string) error
}
