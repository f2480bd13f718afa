package constants

import "time"

const (
	AppName            = "nova"
	DefaultKeyringUser = "remote-connection"
	KeyringUserIDKey   = "user-id"
	DefaultConfigDir   = "~/.config/nova"
	DefaultConfigFile  = "~/.config/nova/config.yaml"
	DefaultCachePath   = "~/.config/nova/nova.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Local snapshot slots
	GoalsKey   = "savedGoals"
	FoldersKey = "savedFolders"

	// SnapshotSchemaVersion is written into every local snapshot envelope.
	SnapshotSchemaVersion = 1

	// Remote collection names under users/<uid>/
	GoalsCollection   = "goals"
	FoldersCollection = "folders"

	// Remote backends
	RemoteNone      = "none"
	RemoteDirScheme = "dir:"

	// Postgres change notification channel
	NotifyChannel = "nova_documents"

	// Listener tuning for the postgres remote
	ListenerMinReconnect = 10 * time.Second
	ListenerMaxReconnect = time.Minute
	ListenerPingInterval = 90 * time.Second

	// DirStoreDebounce coalesces bursts of filesystem events into one snapshot.
	DirStoreDebounce = 200 * time.Millisecond

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "nova-"
	BackupFileSuffix = ".db"

	// Instance lock
	LockfileName = "nova.lock"

	// Environment overrides
	EnvUserID = "NOVA_USER_ID"
	EnvRemote = "NOVA_REMOTE"
)
