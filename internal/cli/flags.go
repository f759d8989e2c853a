package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	EnvFile string `long:"env-file" description:"Path to a .env file (default: ./.env when present)"`
	DB      string `long:"db" description:"Override the settings database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand runs the interceptor daemon and HTTP API.
type ServeCommand struct {
	globals *GlobalFlags
	version string
}

// ListCommand prints the domain list.
type ListCommand struct {
	Sorted bool `long:"sorted" description:"Sort alphabetically instead of match order"`

	globals *GlobalFlags
}

// AddCommand appends one domain.
type AddCommand struct {
	Args struct {
		Domain string `positional-arg-name:"domain" required:"yes"`
	} `positional-args:"yes"`

	globals *GlobalFlags
}

// RemoveCommand deletes one domain.
type RemoveCommand struct {
	Args struct {
		Domain string `positional-arg-name:"domain" required:"yes"`
	} `positional-args:"yes"`

	globals *GlobalFlags
}

// ClearCommand deletes every domain.
type ClearCommand struct {
	Force bool `long:"force" description:"Required to confirm removing every domain"`

	globals *GlobalFlags
}

// SkipHomepageCommand toggles the homepage exemption.
type SkipHomepageCommand struct {
	Args struct {
		State string `positional-arg-name:"on|off" required:"yes"`
	} `positional-args:"yes"`

	globals *GlobalFlags
}

// RecommendedCommand merges the recommended domain list.
type RecommendedCommand struct {
	URL string `long:"url" description:"Override the recommended list URL"`

	globals *GlobalFlags
}

// DecideCommand evaluates a URL against the stored settings.
type DecideCommand struct {
	Args struct {
		URL string `positional-arg-name:"url" required:"yes"`
	} `positional-args:"yes"`

	globals *GlobalFlags
}
