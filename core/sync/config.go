package sync

import "runtime"

// Config holds deployment-level configuration for the synchronization engine.
type Config struct {
	// DefaultRoot is the container path rows are anchored to when their
	// location value is not fully qualified.
	DefaultRoot string `mapstructure:"default_root" default:"OU=People,DC=example,DC=org"`
	// ManagedRoot is the scope orphan detection and cleanup operate under.
	// Empty disables orphan deletion.
	ManagedRoot string `mapstructure:"managed_root" default:""`
	// MaxIdentifierLength caps generated identifiers; longer bases are
	// truncated before a disambiguation suffix is appended.
	MaxIdentifierLength int `mapstructure:"max_identifier_length" default:"20"`
	// Workers bounds the worker pool for parallel planning and execution.
	// Zero selects a small multiple of the available processors.
	Workers int `mapstructure:"workers" default:"0"`
	// GroupPrefix is prepended to leaf container names to derive group names.
	GroupPrefix string `mapstructure:"group_prefix" default:""`
	// HomeHost is the file host home resources are provisioned on.
	HomeHost string `mapstructure:"home_host" default:""`
	// HomePath is the base filesystem path for home resources on the host.
	HomePath string `mapstructure:"home_path" default:"/home"`
	// HomeQuotaMB is the quota applied to each home resource, in megabytes.
	HomeQuotaMB int `mapstructure:"home_quota_mb" default:"1024"`
	// ProvisionBatchSize caps how many provisioning calls run against one
	// host before pausing.
	ProvisionBatchSize int `mapstructure:"provision_batch_size" default:"5"`
	// ProvisionPauseMS is the pause between provisioning sub-batches.
	ProvisionPauseMS int `mapstructure:"provision_pause_ms" default:"250"`
}

// Options carries the per-run behavior switches on top of Config.
type Options struct {
	Config

	// AutoCreateContainers plans a container creation for every missing
	// target path.
	AutoCreateContainers bool

	// DeleteOrphans enables orphan detection and empty-container cleanup
	// under the managed root.
	DeleteOrphans bool

	// ManageGroups enables group creation and membership actions per row.
	ManageGroups bool

	// ProvisionHomes enables home-resource provisioning actions per row.
	ProvisionHomes bool

	// ParallelPlanning runs per-row planning under a bounded worker pool
	// instead of sequentially. Both modes produce the same action set.
	ParallelPlanning bool

	// LocationAttribute is the mapped attribute holding the raw location
	// value the path builder consumes.
	LocationAttribute string

	// FirstNameColumn and LastNameColumn are the source columns forming the
	// natural identity key.
	FirstNameColumn string
	LastNameColumn  string

	// HomeSubDirs lists sub-resource directories created inside each home.
	HomeSubDirs []string

	// VolatileAttrs are excluded from the attribute diff (secrets, object
	// identifiers, timestamps). The identity attribute is always excluded.
	VolatileAttrs []string

	// CaseSensitiveAttrs is the fixed exception set compared with case
	// significance; all other attributes compare case-insensitively.
	CaseSensitiveAttrs []string
}

// setDefaults fills unset option fields with their defaults.
func (o *Options) setDefaults() {
	if o.LocationAttribute == "" {
		o.LocationAttribute = "location"
	}
	if o.FirstNameColumn == "" {
		o.FirstNameColumn = "firstname"
	}
	if o.LastNameColumn == "" {
		o.LastNameColumn = "lastname"
	}
	if o.HomeSubDirs == nil {
		o.HomeSubDirs = []string{"documents", "desktop"}
	}
	if o.VolatileAttrs == nil {
		o.VolatileAttrs = []string{"password", "objectguid", "objectsid", "whencreated", "whenchanged"}
	}
	if o.CaseSensitiveAttrs == nil {
		o.CaseSensitiveAttrs = []string{"displayname"}
	}
	if o.MaxIdentifierLength <= 0 {
		o.MaxIdentifierLength = 20
	}
	if o.ProvisionBatchSize <= 0 {
		o.ProvisionBatchSize = 5
	}
}

// workerCount returns the bounded pool size: the configured worker count,
// capped at four times the available processors, defaulting to twice the
// available processors.
func (o *Options) workerCount() int {
	procs := runtime.GOMAXPROCS(0)
	if o.Workers > 0 {
		if o.Workers > 4*procs {
			return 4 * procs
		}
		return o.Workers
	}
	return 2 * procs
}
