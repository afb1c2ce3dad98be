package refresher

import (
	"context"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

// CacheStore is the persistence the refresher needs: three independent
// records with miss-tolerant reads. Write failures are reported but a caller
// may choose to ignore them.
type CacheStore interface {
	// Ready idempotently prepares the backing storage and fails with a
	// *domain.StorageError when it cannot.
	Ready() error

	RawRules() (string, bool)
	PutRawRules(text string) error

	Metadata() (domain.FetchMetadata, bool)
	PutMetadata(meta domain.FetchMetadata) error

	Artifact() (domain.RuleArtifact, bool)
	PutArtifact(artifact domain.RuleArtifact) error
}

// FeedClient performs one conditional fetch against the remote rules feed.
type FeedClient interface {
	Fetch(ctx context.Context, prior domain.FetchMetadata) (domain.FetchResult, error)
}

// Compiler converts raw filter-list text into its compiled, serializable
// form.
type Compiler interface {
	Compile(rawText string) (domain.CompiledRules, error)
}

// CompilerFunc adapts a plain function to the Compiler interface.
type CompilerFunc func(rawText string) (domain.CompiledRules, error)

func (f CompilerFunc) Compile(rawText string) (domain.CompiledRules, error) {
	return f(rawText)
}
