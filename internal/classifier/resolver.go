package classifier

import (
	"context"

	"github.com/xaenox/bwe-assistant/internal/models"
)

// Resolver looks a file up in the assignment map and falls back to
// classifying its filename.
type Resolver struct {
	patterns *KeywordClassifier
}

func NewResolver(patterns *KeywordClassifier) *Resolver {
	if patterns == nil {
		patterns = NewKeywordClassifier()
	}
	return &Resolver{patterns: patterns}
}

// Resolve returns the assigned category of file, or the filename pattern match.
func (r *Resolver) Resolve(file models.FileRecord, assignments map[string]string) string {
	if category, ok := assignments[file.ID]; ok {
		return category
	}
	return r.patterns.classify(file.Filename, "")
}

// Suggest runs both strategies: the filename patterns, then classifier when
// the patterns only produced General Documents.
func (r *Resolver) Suggest(ctx context.Context, file models.FileRecord, classifier Classifier) string {
	category := r.patterns.classify(file.Filename, "")
	if category != models.GeneralDocuments || classifier == nil {
		return category
	}
	return classifier.Classify(ctx, file.Filename, "")
}
