package semsearch

import (
	"errors"
	"fmt"

	"github.com/FrenchMajesty/semantic-search/pkg/types"
)

// UserMessage turns an action error into a sentence suitable for a status line
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		validationErr *types.ValidationError
		configErr     *types.ConfigError
		timeoutErr    *types.TimeoutError
		embeddingErr  *types.EmbeddingError
		storeErr      *types.StoreError
	)

	switch {
	case errors.As(err, &validationErr):
		return "Invalid input: " + validationErr.Message
	case errors.As(err, &configErr):
		return fmt.Sprintf("Configuration error: %s. Set it in the settings or the environment.", configErr.Message)
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("The request timed out (%s). Try again.", timeoutErr.Op)
	case errors.As(err, &embeddingErr):
		return fmt.Sprintf("Could not generate an embedding (%s): %s", embeddingErr.Provider, embeddingErr.Message)
	case errors.As(err, &storeErr):
		return "Vector database error: " + storeErr.Message
	}

	return "Unexpected error: " + err.Error()
}
