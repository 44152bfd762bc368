package types

type StoreBackend string

const (
	StoreBackendMemory    StoreBackend = "memory"
	StoreBackendPostgres  StoreBackend = "postgres"
	StoreBackendFirestore StoreBackend = "firestore"
)

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Document store
	StoreBackend   StoreBackend `envconfig:"STORE_BACKEND" default:"postgres"`
	DatabaseURL    string       `envconfig:"DATABASE_URL"`
	DatabaseSchema string       `envconfig:"DATABASE_SCHEMA" default:"foodshare"`

	// Firestore
	FirestoreProjectID    string `envconfig:"FIRESTORE_PROJECT_ID"`
	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE"`

	// Donation images, upload is disabled when empty
	ImageBucket string `envconfig:"IMAGE_BUCKET"`

	// Notifications
	NotifyMaxRetries uint64 `envconfig:"NOTIFY_MAX_RETRIES" default:"3"`
	NotifyTimeoutSec uint   `envconfig:"NOTIFY_TIMEOUT_SEC" default:"10"`
}
