package lansweeper

// Config holds configuration for the Lansweeper API client.
type Config struct {
	// Endpoint is the GraphQL endpoint URL.
	Endpoint string `mapstructure:"endpoint" default:"https://api.lansweeper.com/api/v2/graphql"`
	// SiteID is the Lansweeper site identifier.
	SiteID string `mapstructure:"site_id" default:""`
	// Token is the Personal Access Token used for authentication.
	Token string `mapstructure:"token" default:""`
	// TimeoutSeconds is the per-request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
