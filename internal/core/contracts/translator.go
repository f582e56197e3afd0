package contracts

import "context"

// Translator is the outbound machine-translation call. Implementations make
// exactly one remote request per invocation; rate limiting and the
// same-language short circuit live above this interface.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
