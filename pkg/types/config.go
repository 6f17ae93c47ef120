package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds every single HTTP round trip, including reading the body.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pharma-extractor/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig controls how transient failures are retried.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`

	// BaseDelay is the wait before the second attempt; it doubles afterwards (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
}

// PubMedConfig holds settings for the E-utilities client.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	Retry RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	// SearchURL and FetchURL override the E-utilities endpoints.
	SearchURL string `json:"search_url,omitempty" yaml:"search_url,omitempty" mapstructure:"search_url"`
	FetchURL  string `json:"fetch_url,omitempty" yaml:"fetch_url,omitempty" mapstructure:"fetch_url"`

	// Tool and Email identify the caller to NCBI, as their usage policy asks.
	Tool  string `json:"tool" yaml:"tool" mapstructure:"tool"`
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email"`

	// MaxResults is the esearch retmax and the default fetch limit (default 50).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// FetchBatchSize is the number of identifiers sent per efetch call (default 200).
	FetchBatchSize int `json:"fetch_batch_size" yaml:"fetch_batch_size" mapstructure:"fetch_batch_size"`
}

// ClassifierConfig holds the keyword lists that drive affiliation
// classification. Empty lists fall back to the built-in defaults.
type ClassifierConfig struct {
	// KeywordsFile is an optional YAML file with academic and non_academic lists.
	KeywordsFile string `json:"keywords_file,omitempty" yaml:"keywords_file,omitempty" mapstructure:"keywords_file"`

	AcademicKeywords    []string `json:"academic_keywords,omitempty" yaml:"academic_keywords,omitempty" mapstructure:"academic_keywords"`
	NonAcademicKeywords []string `json:"non_academic_keywords,omitempty" yaml:"non_academic_keywords,omitempty" mapstructure:"non_academic_keywords"`
}

// OutputFormat selects how the assembled records are serialized.
type OutputFormat string

const (
	OutputCSV  OutputFormat = "csv"
	OutputJSON OutputFormat = "json"
)
