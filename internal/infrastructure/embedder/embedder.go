package embedder

import (
	"fmt"

	"github.com/janhq/jan-workspace/internal/configs"
	"github.com/janhq/jan-workspace/internal/domain/embedding"
)

// New builds the embedding backend selected by EMBEDDING_PROVIDER.
func New(cfg *configs.Config) (embedding.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case configs.EmbeddingProviderOpenAI:
		if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY or OPENAI_BASE_URL is required for the openai provider")
		}
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions), nil
	case configs.EmbeddingProviderTEI:
		return NewTEIEmbedder(cfg.TEIURL, cfg.TEIAPIKey, cfg.EmbeddingRequestTimeout), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}
